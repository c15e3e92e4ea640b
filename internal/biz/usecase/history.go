package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/postworthy/postbot/internal/biz/domain"
	"github.com/postworthy/postbot/internal/biz/repo"
)

// DefaultHistoryPageSize is the page size used against the platform's
// history API.
const DefaultHistoryPageSize = 200

// ErrInvalidRelativeTime is returned for lookback tokens that do not
// match <number>h or <number>d.
var ErrInvalidRelativeTime = errors.New("invalid relative time, expected something like 12h or 3d")

var relativeTimeRe = regexp.MustCompile(`(?i)^(\d+)([hd])$`)

// maxRelativeHours bounds lookback tokens to a year; unbounded counts
// would overflow the duration arithmetic.
const maxRelativeHours = 365 * 24

// ParseRelativeTime converts a token like "12h" or "3d" into a duration.
// Zero and counts beyond a year are rejected.
func ParseRelativeTime(token string) (time.Duration, error) {
	m := relativeTimeRe.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRelativeTime, token)
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRelativeTime, token)
	}

	switch strings.ToLower(m[2]) {
	case "h":
		if n > maxRelativeHours {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRelativeTime, token)
		}
		return time.Duration(n) * time.Hour, nil
	default:
		if n > maxRelativeHours/24 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidRelativeTime, token)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
}

// HistoryUsecase fetches past messages from the chat platform and
// normalizes them to the buffer's message shape.
type HistoryUsecase struct {
	chatRepo repo.ChatRepo
	buffer   *BufferUsecase // shares the admission predicate
	pageSize int
}

// NewHistoryUsecase creates a new history usecase
func NewHistoryUsecase(chatRepo repo.ChatRepo, buffer *BufferUsecase) *HistoryUsecase {
	return &HistoryUsecase{
		chatRepo: chatRepo,
		buffer:   buffer,
		pageSize: DefaultHistoryPageSize,
	}
}

// FetchRange pages through channel history between oldest and latest
// (latest empty = now), applies the buffer's admission predicate per
// page, and returns the survivors sorted ascending by timestamp token.
//
// The final sort is required: upstream pagination order is not
// guaranteed to be globally chronological, and checkpoint updates take
// the last message's timestamp, so an out-of-order result could skip or
// re-include messages on the next call.
func (uc *HistoryUsecase) FetchRange(ctx context.Context, channelID, oldest, latest string) ([]domain.Message, error) {
	var messages []domain.Message
	cursor := ""

	for {
		page, err := uc.chatRepo.FetchHistory(ctx, channelID, oldest, latest, cursor, uc.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetch history for %s: %w", channelID, err)
		}

		for _, raw := range page.Messages {
			if !uc.buffer.ShouldStore(raw.BotID, raw.SubType, raw.Text) {
				continue
			}
			messages = append(messages, domain.Message{
				User: raw.User,
				Text: raw.Text,
				TS:   raw.TS,
			})
		}

		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return domain.TSLess(messages[i].TS, messages[j].TS)
	})
	return messages, nil
}

// FetchByRelativeTime fetches history from now-token (e.g. "2h") to now.
func (uc *HistoryUsecase) FetchByRelativeTime(ctx context.Context, channelID, token string) ([]domain.Message, error) {
	d, err := ParseRelativeTime(token)
	if err != nil {
		return nil, err
	}
	oldest := domain.FormatTS(time.Now().Add(-d))
	return uc.FetchRange(ctx, channelID, oldest, "")
}

// FetchSince fetches everything after sinceTS, for checkpoint resume.
func (uc *HistoryUsecase) FetchSince(ctx context.Context, channelID, sinceTS string) ([]domain.Message, error) {
	return uc.FetchRange(ctx, channelID, sinceTS, "")
}
