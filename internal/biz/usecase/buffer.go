package usecase

import (
	"strings"
	"sync"
	"time"

	"github.com/postworthy/postbot/internal/biz/domain"
)

// BufferConfig contains buffer configuration
type BufferConfig struct {
	Window           time.Duration // Rolling window, messages older than this are dropped
	MinMessageLength int           // Minimum trimmed text length to admit a message
}

// DefaultBufferConfig returns default buffer configuration
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{
		Window:           4 * time.Hour,
		MinMessageLength: 5,
	}
}

// BufferUsecase keeps a rolling in-memory window of recent messages per
// channel. Expiry is enforced lazily: every read and write sweeps the
// touched channel first, and a channel left empty after a sweep is
// removed entirely so the map only holds active channels.
type BufferUsecase struct {
	mu       sync.Mutex
	channels map[string][]domain.Message
	config   BufferConfig

	now func() time.Time // injectable for tests
}

// NewBufferUsecase creates a new buffer usecase
func NewBufferUsecase(config BufferConfig) *BufferUsecase {
	return &BufferUsecase{
		channels: make(map[string][]domain.Message),
		config:   config,
		now:      time.Now,
	}
}

// ShouldStore is the admission predicate shared by the live event path
// and the history fetcher. It rejects bot senders, non-plain message
// subtypes (edits, deletes, joins) and texts shorter than the minimum.
// Pure predicate; callers must check it before Add.
func (uc *BufferUsecase) ShouldStore(botID, subType, text string) bool {
	if botID != "" {
		return false
	}
	if subType != "" {
		return false
	}
	return len([]rune(strings.TrimSpace(text))) >= uc.config.MinMessageLength
}

// Add appends a message to the channel's window with AddedAt=now.
// The admission predicate is the caller's responsibility.
func (uc *BufferUsecase) Add(channelID, user, text, ts string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.now()
	uc.sweepLocked(channelID, now)
	uc.channels[channelID] = append(uc.channels[channelID], domain.Message{
		User:    user,
		Text:    text,
		TS:      ts,
		AddedAt: now,
	})
}

// Get returns the channel's live window in chronological order. Later
// Add and sweep calls never rewrite the returned slice; callers still
// must not mutate it.
func (uc *BufferUsecase) Get(channelID string) []domain.Message {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.sweepLocked(channelID, uc.now())
	return uc.channels[channelID]
}

// Clear removes the channel's entry unconditionally.
func (uc *BufferUsecase) Clear(channelID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.channels, channelID)
}

// Channels returns the IDs of channels that currently hold live messages.
func (uc *BufferUsecase) Channels() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.now()
	ids := make([]string, 0, len(uc.channels))
	for id := range uc.channels {
		uc.sweepLocked(id, now)
		if _, ok := uc.channels[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Stats returns the live message count per channel, for the API server.
func (uc *BufferUsecase) Stats() map[string]int {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.now()
	stats := make(map[string]int, len(uc.channels))
	for id := range uc.channels {
		uc.sweepLocked(id, now)
		if msgs, ok := uc.channels[id]; ok {
			stats[id] = len(msgs)
		}
	}
	return stats
}

// sweepLocked drops messages older than the window and deletes the
// channel key when nothing survives. Survivors go into a fresh slice:
// slices previously returned by Get alias the old backing array, and an
// in-place compaction would rewrite them under a concurrent reader.
// Caller holds uc.mu.
func (uc *BufferUsecase) sweepLocked(channelID string, now time.Time) {
	msgs, ok := uc.channels[channelID]
	if !ok {
		return
	}

	cutoff := now.Add(-uc.config.Window)
	kept := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.AddedAt.After(cutoff) {
			kept = append(kept, m)
		}
	}

	if len(kept) == 0 {
		delete(uc.channels, channelID)
		return
	}
	uc.channels[channelID] = kept
}
