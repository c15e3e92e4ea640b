package usecase

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/postworthy/postbot/internal/biz/domain"
)

// DefaultHistorySize is the default bound on stored suggestions.
const DefaultHistorySize = 100

// CheckpointKind names one of the two independent per-channel
// checkpoint namespaces.
type CheckpointKind string

const (
	CheckpointSync     CheckpointKind = "sync"
	CheckpointAnalyzed CheckpointKind = "analyzed"
)

// Fingerprint normalizes text into a dedup key: lowercase, punctuation
// stripped, whitespace collapsed to single spaces, trimmed. It is a
// projection: Fingerprint(Fingerprint(x)) == Fingerprint(x). Empty input
// yields an empty fingerprint, which callers treat as "do not store".
func Fingerprint(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SuggestionStore is a bounded in-memory record of accepted suggestions
// keyed by fingerprint, plus the per-channel checkpoints. Eviction is
// FIFO by insertion order; re-storing an existing fingerprint replaces
// its record without counting as growth. All state is volatile.
//
// Records are never mutated after insertion: ListAll hands out record
// pointers and readers hold them outside the lock.
type SuggestionStore struct {
	mu       sync.Mutex
	capacity int
	records  map[string]*domain.SuggestionRecord
	order    []string // fingerprints in insertion order

	checkpoints map[CheckpointKind]map[string]string
}

// NewSuggestionStore creates a store bounded to capacity entries.
func NewSuggestionStore(capacity int) *SuggestionStore {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &SuggestionStore{
		capacity: capacity,
		records:  make(map[string]*domain.SuggestionRecord),
		checkpoints: map[CheckpointKind]map[string]string{
			CheckpointSync:     {},
			CheckpointAnalyzed: {},
		},
	}
}

// Store records a suggestion under the fingerprint of its primary draft.
// A suggestion with no usable draft text is ignored.
func (s *SuggestionStore) Store(sg *domain.Suggestion) {
	fp := Fingerprint(sg.PrimaryDraft())
	if fp == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[fp]; ok {
		s.records[fp] = &domain.SuggestionRecord{
			Fingerprint: fp,
			Suggestion:  sg,
			StoredAt:    time.Now(),
		}
		return
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}

	s.records[fp] = &domain.SuggestionRecord{
		Fingerprint: fp,
		Suggestion:  sg,
		StoredAt:    time.Now(),
	}
	s.order = append(s.order, fp)
}

// ListAll returns the stored records in insertion order.
func (s *SuggestionStore) ListAll() []*domain.SuggestionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.SuggestionRecord, 0, len(s.order))
	for _, fp := range s.order {
		out = append(out, s.records[fp])
	}
	return out
}

// Contains reports whether a fingerprint is currently stored.
func (s *SuggestionStore) Contains(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[fingerprint]
	return ok
}

// Len returns the number of stored suggestions.
func (s *SuggestionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// GetCheckpoint returns the stored timestamp token for a channel in the
// given namespace, or "" when none exists.
func (s *SuggestionStore) GetCheckpoint(kind CheckpointKind, channelID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoints[kind][channelID]
}

// SetCheckpoint records a timestamp token for a channel.
func (s *SuggestionStore) SetCheckpoint(kind CheckpointKind, channelID, ts string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[kind][channelID] = ts
}
