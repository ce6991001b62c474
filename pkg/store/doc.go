// Package store persists named templates in a SQL database and rebuilds
// templating engines from them.
//
// Template sources are validated by parsing before any write, so the
// database never holds a template that cannot be loaded back. Import and
// export use a JSON representation of name/content pairs and run inside
// a single transaction.
package store
