package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kristopherlb/shinobi/internal/resolver"
)

// RecordRun stores a successful synthesis result. source identifies where
// the manifest came from, typically its path. Recording the same run ID
// twice is a no-op.
func (s *Store) RecordRun(ctx context.Context, source string, res *resolver.SynthesisResult) error {
	info := res.PatchInfo
	if info == nil {
		info = map[string]any{}
	}
	infoJSON, err := marshalJSON(info)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	r, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, source, service, environment, framework, started_at, synthesis_time_ms, patches_applied, patch_info, construct_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		res.RunID,
		source,
		res.Service,
		res.Environment,
		res.Framework.String(),
		res.StartedAt.UTC().Format(timeLayout),
		res.SynthesisTimeMs,
		res.PatchesApplied,
		infoJSON,
		res.Stack.Len(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if n, err := r.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	if err := writeComponents(ctx, tx, res); err != nil {
		return err
	}
	if err := writeBindings(ctx, tx, res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func writeComponents(ctx context.Context, tx *sql.Tx, res *resolver.SynthesisResult) error {
	for i, c := range res.Summaries() {
		caps, err := marshalJSON(c.Capabilities)
		if err != nil {
			return fmt.Errorf("write component %s: %w", c.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_components (run_id, seq, name, type, capabilities)
			VALUES (?, ?, ?, ?, ?)
		`, res.RunID, i, c.Name, c.Type, caps); err != nil {
			return fmt.Errorf("write component %s: %w", c.Name, err)
		}
	}
	return nil
}

func writeBindings(ctx context.Context, tx *sql.Tx, res *resolver.SynthesisResult) error {
	for i, b := range res.Bindings {
		resources, err := marshalJSON(b.Result.Resources)
		if err != nil {
			return fmt.Errorf("write binding %d: %w", i, err)
		}
		metadata, err := marshalJSON(b.Result.Metadata)
		if err != nil {
			return fmt.Errorf("write binding %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_bindings (run_id, seq, source, target, capability, access, strategy, resources, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, res.RunID, i, b.Source, b.Target, b.Capability, b.Access, b.Strategy, resources, metadata); err != nil {
			return fmt.Errorf("write binding %d: %w", i, err)
		}
	}
	return nil
}
