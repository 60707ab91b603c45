package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/protocol"
)

// PostgresStore persists channel records in PostgreSQL, one row per channel
// with the turn history as a JSONB document. Same semantics as the file
// backend; the row is still overwritten whole, there is no per-turn schema.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(ctx context.Context, databaseURL string, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS channel_contexts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			messages JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Read(ctx context.Context, channelID string) (*protocol.ChannelRecord, error) {
	var (
		name string
		raw  []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT name, messages FROM channel_contexts WHERE id=$1`,
		channelID,
	).Scan(&name, &raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query channel record: %w", err)
	}

	rec := &protocol.ChannelRecord{ID: channelID, Name: name, Messages: []protocol.Turn{}}
	if err := json.Unmarshal(raw, &rec.Messages); err != nil {
		s.logger.Warn("malformed channel record, treating as absent",
			zap.String("channel_id", channelID),
			zap.Error(err))
		return nil, nil
	}
	return rec, nil
}

func (s *PostgresStore) Create(ctx context.Context, channelID, displayName string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO channel_contexts (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
		channelID, displayName,
	)
	if err != nil {
		return fmt.Errorf("create channel record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Write(ctx context.Context, channelID string, turns []protocol.Turn) error {
	if turns == nil {
		turns = []protocol.Turn{}
	}
	raw, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}

	// The WHERE clause carries the empty-write guard: empty incoming turns
	// only land when the stored history is already empty.
	_, err = s.pool.Exec(ctx,
		`INSERT INTO channel_contexts (id, messages, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (id) DO UPDATE SET messages = EXCLUDED.messages, updated_at = now()
		 WHERE jsonb_array_length(channel_contexts.messages) = 0 OR jsonb_array_length(EXCLUDED.messages) > 0`,
		channelID, raw,
	)
	if err != nil {
		return fmt.Errorf("write channel record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, channelID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE channel_contexts SET messages = '[]', updated_at = now()
		 WHERE id=$1 AND jsonb_array_length(messages) > 0`,
		channelID,
	)
	if err != nil {
		return false, fmt.Errorf("clear channel record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
