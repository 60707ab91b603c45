package store

import (
	"context"

	"github.com/antoniostano/clyde/internal/protocol"
)

// Store persists per-channel conversation records. It is the source of truth
// when the in-memory cache is cold and the sole way context survives a
// restart.
//
// Read reports an absent record as (nil, nil); malformed durable data is
// logged and also reported as absent so callers can treat it as "never
// created". Write failures are not retried here, retry is the pipeline's
// responsibility.
type Store interface {
	Read(ctx context.Context, channelID string) (*protocol.ChannelRecord, error)
	Create(ctx context.Context, channelID, displayName string) error
	Write(ctx context.Context, channelID string, turns []protocol.Turn) error
	Clear(ctx context.Context, channelID string) (bool, error)
	Close() error
}
