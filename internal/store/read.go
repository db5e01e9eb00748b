package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// timeLayout has fixed width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned by GetRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is a recorded synthesis run.
type Run struct {
	ID              string         `json:"id"`
	Source          string         `json:"source"`
	Service         string         `json:"service"`
	Environment     string         `json:"environment"`
	Framework       string         `json:"framework"`
	StartedAt       time.Time      `json:"startedAt"`
	SynthesisTimeMs int64          `json:"synthesisTimeMs"`
	PatchesApplied  bool           `json:"patchesApplied"`
	PatchInfo       map[string]any `json:"patchInfo,omitempty"`
	ConstructCount  int            `json:"constructCount"`
}

// Component is a component recorded with a run.
type Component struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
}

// Binding is a binding recorded with a run.
type Binding struct {
	Seq        int            `json:"seq"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Capability string         `json:"capability"`
	Access     string         `json:"access,omitempty"`
	Strategy   string         `json:"strategy"`
	Resources  []string       `json:"resources"`
	Metadata   map[string]any `json:"metadata"`
}

const runColumns = `id, source, service, environment, framework, started_at, synthesis_time_ms, patches_applied, patch_info, construct_count`

// ListRuns returns the most recent runs first. An empty service lists all
// services; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, service string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if service != "" {
		query += ` WHERE service = ?`
		args = append(args, service)
	}
	query += ` ORDER BY started_at DESC, id COLLATE BINARY DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// Components returns a run's components in manifest order.
func (s *Store) Components(ctx context.Context, runID string) ([]Component, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, capabilities FROM run_components
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query components: %w", err)
	}
	defer rows.Close()

	out := []Component{}
	for rows.Next() {
		var (
			c    Component
			caps string
		)
		if err := rows.Scan(&c.Name, &c.Type, &caps); err != nil {
			return nil, fmt.Errorf("scan component: %w", err)
		}
		if err := unmarshalJSON(caps, &c.Capabilities); err != nil {
			return nil, fmt.Errorf("component %s capabilities: %w", c.Name, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate components: %w", err)
	}
	return out, nil
}

// Bindings returns a run's bindings in execution order.
func (s *Store) Bindings(ctx context.Context, runID string) ([]Binding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, source, target, capability, access, strategy, resources, metadata
		FROM run_bindings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query bindings: %w", err)
	}
	defer rows.Close()

	out := []Binding{}
	for rows.Next() {
		var (
			b                   Binding
			resources, metadata string
		)
		if err := rows.Scan(&b.Seq, &b.Source, &b.Target, &b.Capability, &b.Access, &b.Strategy, &resources, &metadata); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		if err := unmarshalJSON(resources, &b.Resources); err != nil {
			return nil, fmt.Errorf("binding %d resources: %w", b.Seq, err)
		}
		if err := unmarshalJSON(metadata, &b.Metadata); err != nil {
			return nil, fmt.Errorf("binding %d metadata: %w", b.Seq, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bindings: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r         Run
		startedAt string
		info      string
	)
	if err := row.Scan(&r.ID, &r.Source, &r.Service, &r.Environment, &r.Framework,
		&startedAt, &r.SynthesisTimeMs, &r.PatchesApplied, &info, &r.ConstructCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", r.ID, err)
	}
	r.StartedAt = t
	if err := unmarshalJSON(info, &r.PatchInfo); err != nil {
		return Run{}, fmt.Errorf("run %s patch_info: %w", r.ID, err)
	}
	if len(r.PatchInfo) == 0 {
		r.PatchInfo = nil
	}
	return r, nil
}
