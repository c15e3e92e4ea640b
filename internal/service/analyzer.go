package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/postworthy/postbot/internal/biz/domain"
	"github.com/postworthy/postbot/internal/biz/repo"
	"github.com/postworthy/postbot/internal/biz/usecase"
)

// RunOptions selects the invocation path for an analysis run.
type RunOptions struct {
	// Scheduled runs check the analyzed checkpoint for freshness and
	// silently drop duplicates; on-demand runs surface duplicates to the
	// requester alongside the draft.
	Scheduled bool

	// AdvanceSync additionally advances the sync checkpoint when the
	// analyzed checkpoint advances (explicit sync requests).
	AdvanceSync bool
}

// AnalyzerService ties the buffer, history fetcher, store and detector
// together: gather, threshold, freshness, analyze, checkpoint, gate,
// dedupe, commit. It borrows references to the shared state objects and
// owns no data itself.
type AnalyzerService struct {
	buffer       *usecase.BufferUsecase
	history      *usecase.HistoryUsecase
	store        *usecase.SuggestionStore
	dedup        *usecase.DedupUsecase
	analysisRepo repo.AnalysisRepo
	chatRepo     repo.ChatRepo

	minMessages   int
	lookbackHours int

	// Per-channel single-flight tokens. The ticker and socket-mode loops
	// run on real goroutines, so the gather-to-checkpoint span must not
	// interleave for the same channel.
	inFlight   map[string]bool
	inFlightMu sync.Mutex
}

// NewAnalyzerService creates a new analyzer service
func NewAnalyzerService(
	buffer *usecase.BufferUsecase,
	history *usecase.HistoryUsecase,
	store *usecase.SuggestionStore,
	dedup *usecase.DedupUsecase,
	analysisRepo repo.AnalysisRepo,
	chatRepo repo.ChatRepo,
	minMessages int,
	lookbackHours int,
) *AnalyzerService {
	return &AnalyzerService{
		buffer:        buffer,
		history:       history,
		store:         store,
		dedup:         dedup,
		analysisRepo:  analysisRepo,
		chatRepo:      chatRepo,
		minMessages:   minMessages,
		lookbackHours: lookbackHours,
		inFlight:      make(map[string]bool),
	}
}

// RunAnalysis executes one analysis over an already-gathered candidate
// list and returns the presentation outcome.
func (s *AnalyzerService) RunAnalysis(ctx context.Context, channelID string, messages []domain.Message, opts RunOptions) domain.PresentationPayload {
	if !s.tryAcquire(channelID) {
		return domain.AnalysisFailed("an analysis is already running for this channel")
	}
	defer s.release(channelID)

	// Threshold check: no external call, no checkpoint mutation.
	if len(messages) < s.minMessages {
		return domain.NotEnoughMessages(s.minMessages, len(messages))
	}

	newest := messages[len(messages)-1].TS

	// Freshness check, scheduled path only.
	if opts.Scheduled {
		cp := s.store.GetCheckpoint(usecase.CheckpointAnalyzed, channelID)
		if cp != "" && domain.TSValue(newest) <= domain.TSValue(cp) {
			return domain.NothingNew()
		}
	}

	suggestion, err := s.analysisRepo.Analyze(ctx, formatTranscript(messages))
	if err != nil {
		// Hard call failure: no checkpoint, so the window is retried.
		fmt.Printf("[Analyzer] Analysis call failed for %s: %v\n", channelID, err)
		return domain.AnalysisFailed("the analysis service could not be reached, try again later")
	}

	// Checkpoint immediately, even when the result is rejected below.
	// Re-analyzing the same unproductive window forever is worse than
	// losing one suggestion to a crash after this point.
	s.store.SetCheckpoint(usecase.CheckpointAnalyzed, channelID, newest)
	if opts.AdvanceSync {
		s.store.SetCheckpoint(usecase.CheckpointSync, channelID, newest)
	}

	if suggestion.Error {
		return domain.AnalysisFailed(suggestion.Reasoning)
	}
	if !suggestion.IsPostWorthy {
		return domain.NotPostWorthy(suggestion.Reasoning)
	}

	check := s.dedup.CheckDuplicate(suggestion)
	if check.IsDuplicate {
		// Duplicates are never stored. The two paths diverge on purpose:
		// scheduled runs drop the result, on-demand runs show it with a
		// warning so the requester can decide.
		warning := fmt.Sprintf("looks like an earlier suggestion (similarity %.2f)", check.Similarity)
		fmt.Printf("[Analyzer] Duplicate suggestion for %s: %s\n", channelID, warning)
		return domain.Accepted(suggestion, warning)
	}

	s.store.Store(suggestion)
	return domain.Accepted(suggestion, "")
}

// RunBufferAnalysis analyzes the channel's current buffer window.
func (s *AnalyzerService) RunBufferAnalysis(ctx context.Context, channelID string) domain.PresentationPayload {
	return s.RunAnalysis(ctx, channelID, s.buffer.Get(channelID), RunOptions{})
}

// RunHistoryAnalysis fetches a relative-time window ("2h", "3d") of
// channel history and analyzes it.
func (s *AnalyzerService) RunHistoryAnalysis(ctx context.Context, channelID, token string) domain.PresentationPayload {
	messages, err := s.history.FetchByRelativeTime(ctx, channelID, token)
	if err != nil {
		return domain.AnalysisFailed(describeFetchError(err))
	}
	return s.RunAnalysis(ctx, channelID, messages, RunOptions{})
}

// RunSync resumes from the channel's sync checkpoint, falling back to
// the scheduler lookback window when no checkpoint exists yet.
func (s *AnalyzerService) RunSync(ctx context.Context, channelID string) domain.PresentationPayload {
	since := s.store.GetCheckpoint(usecase.CheckpointSync, channelID)

	var messages []domain.Message
	var err error
	if since != "" {
		messages, err = s.history.FetchSince(ctx, channelID, since)
	} else {
		messages, err = s.history.FetchByRelativeTime(ctx, channelID, fmt.Sprintf("%dh", s.lookbackHours))
	}
	if err != nil {
		return domain.AnalysisFailed(describeFetchError(err))
	}

	return s.RunAnalysis(ctx, channelID, messages, RunOptions{AdvanceSync: true})
}

// RunScheduledAnalysis analyzes each channel's recent history and posts
// accepted suggestions back to the channel. One channel's failure never
// aborts its siblings. Idempotent per call given unchanged checkpoints.
func (s *AnalyzerService) RunScheduledAnalysis(ctx context.Context, channelIDs []string, lookbackHours int) {
	if len(channelIDs) == 0 {
		channelIDs = s.buffer.Channels()
	}
	if lookbackHours <= 0 {
		lookbackHours = s.lookbackHours
	}

	for _, channelID := range channelIDs {
		messages, err := s.history.FetchByRelativeTime(ctx, channelID, fmt.Sprintf("%dh", lookbackHours))
		if err != nil {
			fmt.Printf("[Analyzer] Skipping %s: %v\n", channelID, err)
			continue
		}

		payload := s.RunAnalysis(ctx, channelID, messages, RunOptions{Scheduled: true})
		switch payload.Kind {
		case domain.PayloadAccepted:
			if payload.DuplicateWarning != "" {
				fmt.Printf("[Analyzer] Dropping duplicate for %s: %s\n", channelID, payload.DuplicateWarning)
				continue
			}
			suggestion := &domain.Suggestion{
				IsPostWorthy:  true,
				Reasoning:     payload.Reasoning,
				LinkedInDraft: payload.LinkedInDraft,
				XDraft:        payload.XDraft,
			}
			if err := s.chatRepo.PostSuggestion(ctx, channelID, suggestion); err != nil {
				fmt.Printf("[Analyzer] Failed to post suggestion to %s: %v\n", channelID, err)
			}
		case domain.PayloadNotEnoughMessages:
			fmt.Printf("[Analyzer] %s: not enough messages (%d/%d)\n", channelID, payload.Have, payload.Needed)
		case domain.PayloadNothingNew:
			fmt.Printf("[Analyzer] %s: nothing new since last analysis\n", channelID)
		case domain.PayloadNotPostWorthy:
			fmt.Printf("[Analyzer] %s: not post-worthy: %s\n", channelID, payload.Reasoning)
		case domain.PayloadAnalysisFailed:
			fmt.Printf("[Analyzer] %s: analysis failed: %s\n", channelID, payload.Reasoning)
		}
	}
}

func (s *AnalyzerService) tryAcquire(channelID string) bool {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	if s.inFlight[channelID] {
		return false
	}
	s.inFlight[channelID] = true
	return true
}

func (s *AnalyzerService) release(channelID string) {
	s.inFlightMu.Lock()
	defer s.inFlightMu.Unlock()
	delete(s.inFlight, channelID)
}

// formatTranscript renders the ordered message list as a numbered
// transcript for the analysis model.
func formatTranscript(messages []domain.Message) string {
	var sb strings.Builder
	for i, m := range messages {
		sb.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, m.User, m.Text))
	}
	return sb.String()
}

// describeFetchError turns fetch-boundary errors into short messages
// suitable for the requester.
func describeFetchError(err error) string {
	switch {
	case errors.Is(err, usecase.ErrInvalidRelativeTime):
		return "that time range doesn't parse, use something like 2h or 3d"
	case errors.Is(err, repo.ErrChannelNotFound):
		return "I can't find that channel"
	case errors.Is(err, repo.ErrNotInChannel):
		return "I'm not in that channel yet, invite me first"
	default:
		return "couldn't fetch channel history, try again later"
	}
}
