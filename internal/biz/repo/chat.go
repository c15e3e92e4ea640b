package repo

import (
	"context"
	"errors"

	"github.com/postworthy/postbot/internal/biz/domain"
)

// Named platform errors, translated from upstream error codes at the
// data layer so callers can match with errors.Is.
var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotInChannel    = errors.New("bot is not in this channel")
)

// RawMessage is one message as the chat platform reports it, before the
// admission filter runs.
type RawMessage struct {
	User    string
	Text    string
	TS      string
	BotID   string
	SubType string
}

// HistoryPage is a single page of channel history.
type HistoryPage struct {
	Messages   []RawMessage
	HasMore    bool
	NextCursor string
}

// ChatRepo is the chat platform interface.
// Responsible for fetching history and posting output; it holds no state.
type ChatRepo interface {
	// FetchHistory fetches one page of channel history. oldest/latest are
	// platform timestamp tokens; latest may be empty for "now". cursor is
	// the pagination cursor from the previous page, empty for the first.
	FetchHistory(ctx context.Context, channelID, oldest, latest, cursor string, limit int) (*HistoryPage, error)

	// SendText sends a plain text message to a channel.
	SendText(ctx context.Context, channelID, text string) error

	// PostSuggestion posts an accepted suggestion as a formatted message.
	PostSuggestion(ctx context.Context, channelID string, s *domain.Suggestion) error
}
