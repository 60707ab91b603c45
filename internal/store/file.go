package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/antoniostano/clyde/internal/protocol"
)

// FileStore keeps one JSON document per channel under a data directory.
// Writes are whole-document overwrites, last writer wins.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(channelID string) string {
	return filepath.Join(s.dir, channelID+".json")
}

func (s *FileStore) Read(_ context.Context, channelID string) (*protocol.ChannelRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked(channelID)
}

// readLocked loads and decodes a record. A missing file is not an error, and
// a document that no longer parses degrades to absent rather than failing
// the turn.
func (s *FileStore) readLocked(channelID string) (*protocol.ChannelRecord, error) {
	data, err := os.ReadFile(s.path(channelID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read channel record: %w", err)
	}

	var rec protocol.ChannelRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("malformed channel record, treating as absent",
			zap.String("channel_id", channelID),
			zap.Error(err))
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) writeLocked(rec *protocol.ChannelRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode channel record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0o644); err != nil {
		return fmt.Errorf("write channel record: %w", err)
	}
	return nil
}

// Create is idempotent: an existing record is left untouched, otherwise an
// empty record is created with the display name captured once.
func (s *FileStore) Create(ctx context.Context, channelID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readLocked(channelID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	s.logger.Info("creating channel record",
		zap.String("channel_id", channelID),
		zap.String("name", displayName))
	return s.writeLocked(&protocol.ChannelRecord{
		ID:       channelID,
		Name:     displayName,
		Messages: []protocol.Turn{},
	})
}

// Write persists turns as the record content. An empty incoming sequence
// never replaces a non-empty record; that guards a cold-cache flush from
// wiping real history. Everything else replaces.
func (s *FileStore) Write(ctx context.Context, channelID string, turns []protocol.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readLocked(channelID)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &protocol.ChannelRecord{ID: channelID, Messages: []protocol.Turn{}}
	}
	if len(turns) == 0 && len(rec.Messages) > 0 {
		return nil
	}
	rec.Messages = turns
	if rec.Messages == nil {
		rec.Messages = []protocol.Turn{}
	}
	return s.writeLocked(rec)
}

// Clear empties the record's turns and reports whether any were present.
// An absent or already-empty record is "nothing to clear".
func (s *FileStore) Clear(ctx context.Context, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.readLocked(channelID)
	if err != nil {
		return false, err
	}
	if rec == nil || len(rec.Messages) == 0 {
		return false, nil
	}
	rec.Messages = []protocol.Turn{}
	if err := s.writeLocked(rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) Close() error { return nil }
