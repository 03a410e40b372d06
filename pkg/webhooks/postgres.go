package webhooks

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists endpoint configuration so registrations survive
// restarts. The in-memory Registry stays authoritative at runtime; the store
// seeds it at startup and mirrors every mutation.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates the endpoint store and ensures its schema exists
func NewPostgresStore(ctx context.Context, db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.createTable(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) createTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS webhook_endpoints (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		secret TEXT NOT NULL,
		events TEXT[] NOT NULL,
		tenant_id TEXT NOT NULL DEFAULT '',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create webhook_endpoints table: %w", err)
	}
	return nil
}

// Save inserts or updates an endpoint
func (s *PostgresStore) Save(ctx context.Context, ep *Endpoint) error {
	query := `
	INSERT INTO webhook_endpoints (id, url, secret, events, tenant_id, enabled, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		url = EXCLUDED.url,
		secret = EXCLUDED.secret,
		events = EXCLUDED.events,
		tenant_id = EXCLUDED.tenant_id,
		enabled = EXCLUDED.enabled,
		updated_at = EXCLUDED.updated_at`
	_, err := s.db.ExecContext(ctx, query,
		ep.ID, ep.URL, ep.Secret, pq.Array(ep.Events),
		ep.TenantID, ep.Enabled, ep.CreatedAt, ep.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save endpoint %s: %w", ep.ID, err)
	}
	return nil
}

// Delete removes an endpoint
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM webhook_endpoints WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete endpoint %s: %w", id, err)
	}
	return nil
}

// SetEnabled flips the enabled flag without touching the rest of the row
func (s *PostgresStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE webhook_endpoints SET enabled = $2, updated_at = NOW() WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, enabled); err != nil {
		return fmt.Errorf("failed to update endpoint %s: %w", id, err)
	}
	return nil
}

// List returns all persisted endpoints
func (s *PostgresStore) List(ctx context.Context) ([]*Endpoint, error) {
	query := `
	SELECT id, url, secret, events, tenant_id, enabled, created_at, updated_at
	FROM webhook_endpoints ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*Endpoint
	for rows.Next() {
		var ep Endpoint
		if err := rows.Scan(&ep.ID, &ep.URL, &ep.Secret, pq.Array(&ep.Events),
			&ep.TenantID, &ep.Enabled, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		endpoints = append(endpoints, &ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	return endpoints, nil
}

// SeedRegistry loads every persisted endpoint into the registry, preserving
// stored IDs and enabled flags
func (s *PostgresStore) SeedRegistry(ctx context.Context, registry *Registry) (int, error) {
	endpoints, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, ep := range endpoints {
		registry.restore(ep)
	}
	return len(endpoints), nil
}
