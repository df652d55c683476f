package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createSlotsTable = `
CREATE TABLE IF NOT EXISTS kv_slots (
	slot_key   TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresSlot stores the value in a kv_slots row of a PostgreSQL database.
type PostgresSlot struct {
	key  string
	pool *pgxpool.Pool
}

// OpenPostgres connects to url, ensures the kv_slots table exists and returns
// the slot named key.
func OpenPostgres(ctx context.Context, key, url string, maxConns int) (*PostgresSlot, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if maxConns > 0 {
		poolConfig.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createSlotsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create kv_slots: %w", err)
	}

	return &PostgresSlot{key: key, pool: pool}, nil
}

func (p *PostgresSlot) Key() string { return p.key }

func (p *PostgresSlot) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.pool.QueryRow(ctx,
		`SELECT value FROM kv_slots WHERE slot_key = $1`, p.key,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", p.key, err)
	}
	return data, nil
}

func (p *PostgresSlot) Write(ctx context.Context, data []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO kv_slots (slot_key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (slot_key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		p.key, data,
	)
	if err != nil {
		return fmt.Errorf("write slot %s: %w", p.key, err)
	}
	return nil
}

func (p *PostgresSlot) Close() error {
	p.pool.Close()
	return nil
}
