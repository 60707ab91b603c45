package history

import (
	"sync"

	"github.com/antoniostano/clyde/internal/protocol"
)

const defaultCapacity = 10

// Cache is the in-memory mirror of recent channel history. It bounds each
// channel to a fixed number of turns and performs no I/O; a cold read
// returning an empty slice does not mean the channel has no durable history,
// that distinction is the caller's job.
//
// The cache is constructed once and passed by handle; it is safe for
// concurrent use.
type Cache struct {
	mu       sync.RWMutex
	channels map[string][]protocol.Turn

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	capacity int
}

func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache{
		channels: make(map[string][]protocol.Turn),
		locks:    make(map[string]*sync.Mutex),
		capacity: capacity,
	}
}

// Capacity is the per-channel retention window, fixed at construction.
func (c *Cache) Capacity() int { return c.capacity }

// GetHistory returns a copy of the cached turns for a channel, oldest first.
// An unseen channel yields an empty slice.
func (c *Cache) GetHistory(channelID string) []protocol.Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	turns := c.channels[channelID]
	out := make([]protocol.Turn, len(turns))
	copy(out, turns)
	return out
}

// AddMessage appends one turn, evicting from the front when the channel
// exceeds capacity. It never fails.
func (c *Cache) AddMessage(channelID string, turn protocol.Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := append(c.channels[channelID], turn)
	if len(turns) > c.capacity {
		turns = turns[len(turns)-c.capacity:]
	}
	c.channels[channelID] = turns
}

// SetHistory replaces the cached turns with the trailing min(len, capacity)
// entries, silently dropping the oldest excess.
func (c *Cache) SetHistory(channelID string, turns []protocol.Turn) {
	trimmed := protocol.Tail(turns, c.capacity)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channelID] = trimmed
}

// ClearChannel drops the cached turns for one channel.
func (c *Cache) ClearChannel(channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channelID)
}

// ClearAll drops every cached channel.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = make(map[string][]protocol.Turn)
}

// ChannelCount reports how many channels currently hold cached turns.
func (c *Cache) ChannelCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}

// LockChannel serializes multi-step read-modify-write spans per channel.
// The pipeline holds this across context load, oracle call and commit so two
// near-simultaneous messages for one channel cannot interleave their commits.
func (c *Cache) LockChannel(channelID string) func() {
	c.lockMu.Lock()
	l, ok := c.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[channelID] = l
	}
	c.lockMu.Unlock()

	l.Lock()
	return l.Unlock
}
