package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/Drosera/pkg/templating"
)

// ExportTemplates serializes every stored template as a JSON array of
// name/content pairs and writes it to w. This is useful for backups or
// for transferring template sets between instances.
func (s *Store) ExportTemplates(ctx context.Context, w io.Writer) error {
	infos, err := s.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("could not query templates for export: %w", err)
	}
	if infos == nil {
		infos = []TemplateInfo{}
	}

	s.logger.InfoContext(ctx, "Templates exported",
		slog.Int("template_count", len(infos)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(infos)
}

// ImportTemplates reads a JSON array of name/content pairs from r and
// merges it into the database, replacing templates whose names collide.
// Every template is validated by parsing first; one invalid entry aborts
// the whole import. The entire operation is transactional.
func (s *Store) ImportTemplates(ctx context.Context, r io.Reader) error {
	var infos []TemplateInfo
	if err := json.NewDecoder(r).Decode(&infos); err != nil {
		return fmt.Errorf("failed to decode template export: %w", err)
	}

	for _, info := range infos {
		if info.Name == "" {
			return fmt.Errorf("import contains a template with an empty name")
		}
		if _, err := templating.NewTemplate(info.Content); err != nil {
			return fmt.Errorf("imported template %q is not valid: %w", info.Name, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtUpsert := tx.StmtContext(ctx, s.stmtUpsert)
	for _, info := range infos {
		if _, err = stmtUpsert.ExecContext(ctx, info.Name, info.Content); err != nil {
			return fmt.Errorf("failed to import template %q: %w", info.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit import: %w", err)
	}

	s.logger.InfoContext(ctx, "Templates imported",
		slog.Int("template_count", len(infos)),
	)

	return nil
}
