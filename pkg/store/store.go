package store

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/Drosera/pkg/templating"
)

// SetupSchema initializes the template table in the provided database.
// This function should be called once before any other operations are
// performed. It is idempotent and safe to call on an already-initialized
// database.
func SetupSchema(db *sql.DB) error {
	const schemaTemplates = `
CREATE TABLE IF NOT EXISTS templates (
    template_id INTEGER PRIMARY KEY,
    template_name TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL
);
`

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaTemplates); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// TemplateInfo is a stored template row: its registered name plus the
// raw source text.
type TemplateInfo struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Store provides access to templates persisted in a database. It holds
// prepared SQL statements for the common operations.
type Store struct {
	db         *sql.DB
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtUpsert *sql.Stmt
	stmtDelete *sql.Stmt
	logger     *slog.Logger
}

// New creates a Store over the given database, pre-compiling its SQL
// statements. SetupSchema must have been run first.
func New(db *sql.DB) (*Store, error) {
	stmtGet, err := db.Prepare(`SELECT content FROM templates WHERE template_name = ?;`)
	if err != nil {
		return nil, err
	}

	stmtList, err := db.Prepare(`SELECT template_name, content FROM templates ORDER BY template_name;`)
	if err != nil {
		return nil, err
	}

	stmtUpsert, err := db.Prepare(`INSERT INTO templates (template_name, content) VALUES (?, ?) ON CONFLICT(template_name) DO UPDATE SET content = excluded.content;`)
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(`DELETE FROM templates WHERE template_name = ?;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:         db,
		stmtGet:    stmtGet,
		stmtList:   stmtList,
		stmtUpsert: stmtUpsert,
		stmtDelete: stmtDelete,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtGet.Close()
	_ = s.stmtList.Close()
	_ = s.stmtUpsert.Close()
	_ = s.stmtDelete.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SaveTemplate validates content by parsing it, then inserts or replaces
// the named template. Invalid template text never reaches the database.
func (s *Store) SaveTemplate(ctx context.Context, name, content string) error {
	if _, err := templating.NewTemplate(content); err != nil {
		return fmt.Errorf("template %q is not valid: %w", name, err)
	}

	if _, err := s.stmtUpsert.ExecContext(ctx, name, content); err != nil {
		return fmt.Errorf("failed to save template %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Template saved",
		slog.String("template_name", name),
		slog.Int("content_bytes", len(content)),
	)

	return nil
}

// GetTemplate returns the source text of the named template. A missing
// row is reported as sql.ErrNoRows.
func (s *Store) GetTemplate(ctx context.Context, name string) (string, error) {
	var content string
	if err := s.stmtGet.QueryRowContext(ctx, name).Scan(&content); err != nil {
		return "", err
	}
	return content, nil
}

// ListTemplates returns every stored template ordered by name.
func (s *Store) ListTemplates(ctx context.Context) ([]TemplateInfo, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var infos []TemplateInfo
	for rows.Next() {
		var info TemplateInfo
		if err = rows.Scan(&info.Name, &info.Content); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// DeleteTemplate removes the named template. Deleting an unknown name is
// a no-op.
func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	if _, err := s.stmtDelete.ExecContext(ctx, name); err != nil {
		return fmt.Errorf("failed to delete template %q: %w", name, err)
	}

	s.logger.InfoContext(ctx, "Template deleted",
		slog.String("template_name", name),
	)

	return nil
}

// LoadEngine builds a fresh templating engine from every stored
// template. Rows were validated on the way in, so a parse failure here
// means the database was modified out of band and aborts the load.
func (s *Store) LoadEngine(ctx context.Context) (*templating.Engine, error) {
	infos, err := s.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}

	engine := templating.NewEngine()
	for _, info := range infos {
		if err := engine.AddTemplate(info.Name, info.Content); err != nil {
			return nil, fmt.Errorf("failed to load template %q: %w", info.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "Engine loaded from store",
		slog.Int("template_count", engine.Len()),
	)

	return engine, nil
}
