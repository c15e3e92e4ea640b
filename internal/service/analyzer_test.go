package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/postworthy/postbot/internal/biz/domain"
	"github.com/postworthy/postbot/internal/biz/repo"
	"github.com/postworthy/postbot/internal/biz/usecase"
)

// Mock implementations

type mockAnalysisRepo struct {
	suggestion *domain.Suggestion
	err        error
	calls      int
	transcript string
}

func (m *mockAnalysisRepo) Analyze(ctx context.Context, transcript string) (*domain.Suggestion, error) {
	m.calls++
	m.transcript = transcript
	if m.err != nil {
		return nil, m.err
	}
	return m.suggestion, nil
}

type mockChatRepo struct {
	pages  map[string]*repo.HistoryPage
	errs   map[string]error
	posted []string
	mu     sync.Mutex
}

func (m *mockChatRepo) FetchHistory(ctx context.Context, channelID, oldest, latest, cursor string, limit int) (*repo.HistoryPage, error) {
	if err := m.errs[channelID]; err != nil {
		return nil, err
	}
	if page, ok := m.pages[channelID]; ok {
		return page, nil
	}
	return &repo.HistoryPage{}, nil
}

func (m *mockChatRepo) SendText(ctx context.Context, channelID, text string) error {
	return nil
}

func (m *mockChatRepo) PostSuggestion(ctx context.Context, channelID string, s *domain.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posted = append(m.posted, channelID)
	return nil
}

type fixture struct {
	buffer   *usecase.BufferUsecase
	store    *usecase.SuggestionStore
	analysis *mockAnalysisRepo
	chat     *mockChatRepo
	svc      *AnalyzerService
}

func newFixture(analysis *mockAnalysisRepo, chat *mockChatRepo) *fixture {
	buffer := usecase.NewBufferUsecase(usecase.DefaultBufferConfig())
	history := usecase.NewHistoryUsecase(chat, buffer)
	store := usecase.NewSuggestionStore(usecase.DefaultHistorySize)
	dedup := usecase.NewDedupUsecase(store, usecase.DefaultDuplicateThreshold)
	svc := NewAnalyzerService(buffer, history, store, dedup, analysis, chat, 5, 1)
	return &fixture{buffer: buffer, store: store, analysis: analysis, chat: chat, svc: svc}
}

func qualifyingMessages(n int) []domain.Message {
	msgs := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, domain.Message{
			User: fmt.Sprintf("U%d", i+1),
			Text: fmt.Sprintf("qualifying message number %d", i+1),
			TS:   fmt.Sprintf("%d.000000", 100+i),
		})
	}
	return msgs
}

// Tests

func TestRunAnalysisAccepted(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{
		IsPostWorthy:  true,
		Reasoning:     "shipped something big",
		LinkedInDraft: "X",
		XDraft:        "Y",
	}}
	f := newFixture(analysis, &mockChatRepo{})

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(6), RunOptions{})

	if payload.Kind != domain.PayloadAccepted {
		t.Fatalf("Expected Accepted, got %s (%s)", payload.Kind, payload.Reasoning)
	}
	if payload.LinkedInDraft != "X" || payload.XDraft != "Y" {
		t.Errorf("Drafts not carried through: %+v", payload)
	}
	if payload.DuplicateWarning != "" {
		t.Errorf("Unexpected duplicate warning: %s", payload.DuplicateWarning)
	}
	if !f.store.Contains(usecase.Fingerprint("X")) {
		t.Error("Accepted suggestion should be stored under the draft fingerprint")
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointAnalyzed, "C1"); got != "105.000000" {
		t.Errorf("Analyzed checkpoint = %q, want newest TS", got)
	}
}

func TestRunAnalysisNotEnoughMessages(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{IsPostWorthy: true, LinkedInDraft: "X"}}
	f := newFixture(analysis, &mockChatRepo{})

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(3), RunOptions{})

	if payload.Kind != domain.PayloadNotEnoughMessages {
		t.Fatalf("Expected NotEnoughMessages, got %s", payload.Kind)
	}
	if payload.Needed != 5 || payload.Have != 3 {
		t.Errorf("Counts wrong: %+v", payload)
	}
	if analysis.calls != 0 {
		t.Error("Analysis must not be invoked below the threshold")
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointAnalyzed, "C1"); got != "" {
		t.Errorf("Checkpoint must not move below the threshold, got %q", got)
	}
}

func TestRunAnalysisFreshnessSkip(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{IsPostWorthy: true, LinkedInDraft: "X"}}
	f := newFixture(analysis, &mockChatRepo{})

	f.store.SetCheckpoint(usecase.CheckpointAnalyzed, "C1", "100.0")

	msgs := []domain.Message{
		{User: "U1", Text: "older message one", TS: "80.0"},
		{User: "U2", Text: "older message two", TS: "82.0"},
		{User: "U3", Text: "older message three", TS: "85.0"},
		{User: "U4", Text: "older message four", TS: "88.0"},
		{User: "U5", Text: "older message five", TS: "90.0"},
	}
	payload := f.svc.RunAnalysis(context.Background(), "C1", msgs, RunOptions{Scheduled: true})

	if payload.Kind != domain.PayloadNothingNew {
		t.Fatalf("Expected NothingNew, got %s", payload.Kind)
	}
	if analysis.calls != 0 {
		t.Error("Analysis must not be invoked when nothing is newer than the checkpoint")
	}
}

func TestRunAnalysisFreshnessIgnoredOnDemand(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{IsPostWorthy: false, Reasoning: "quiet"}}
	f := newFixture(analysis, &mockChatRepo{})

	f.store.SetCheckpoint(usecase.CheckpointAnalyzed, "C1", "999.0")

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(5), RunOptions{})

	if payload.Kind != domain.PayloadNotPostWorthy {
		t.Fatalf("Expected NotPostWorthy, got %s", payload.Kind)
	}
	if analysis.calls != 1 {
		t.Error("On-demand runs skip the freshness check")
	}
}

func TestRunAnalysisHardFailureSkipsCheckpoint(t *testing.T) {
	analysis := &mockAnalysisRepo{err: errors.New("connection refused")}
	f := newFixture(analysis, &mockChatRepo{})

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(6), RunOptions{})

	if payload.Kind != domain.PayloadAnalysisFailed {
		t.Fatalf("Expected AnalysisFailed, got %s", payload.Kind)
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointAnalyzed, "C1"); got != "" {
		t.Errorf("Hard failure must not advance the checkpoint, got %q", got)
	}
}

func TestRunAnalysisErrorSuggestionAdvancesCheckpoint(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{
		Error:     true,
		Reasoning: "unparseable analysis response",
	}}
	f := newFixture(analysis, &mockChatRepo{})

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(6), RunOptions{})

	if payload.Kind != domain.PayloadAnalysisFailed {
		t.Fatalf("Expected AnalysisFailed, got %s", payload.Kind)
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointAnalyzed, "C1"); got != "105.000000" {
		t.Errorf("Content-level failure still advances the checkpoint, got %q", got)
	}
	if f.store.Len() != 0 {
		t.Error("Error suggestions must not be stored")
	}
}

func TestRunAnalysisNotPostWorthyAdvancesCheckpoint(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{IsPostWorthy: false, Reasoning: "routine chatter"}}
	f := newFixture(analysis, &mockChatRepo{})

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(6), RunOptions{})

	if payload.Kind != domain.PayloadNotPostWorthy {
		t.Fatalf("Expected NotPostWorthy, got %s", payload.Kind)
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointAnalyzed, "C1"); got == "" {
		t.Error("Rejected content still advances the checkpoint")
	}
	if f.store.Len() != 0 {
		t.Error("Rejected suggestions must not be stored")
	}
}

func TestRunAnalysisDuplicateOnDemand(t *testing.T) {
	draft := "We shipped a new caching layer today and latency dropped 40%"
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{
		IsPostWorthy:  true,
		Reasoning:     "same win again",
		LinkedInDraft: draft,
	}}
	f := newFixture(analysis, &mockChatRepo{})

	f.store.Store(&domain.Suggestion{IsPostWorthy: true, LinkedInDraft: draft})

	payload := f.svc.RunAnalysis(context.Background(), "C1", qualifyingMessages(6), RunOptions{})

	if payload.Kind != domain.PayloadAccepted {
		t.Fatalf("Expected Accepted with warning, got %s", payload.Kind)
	}
	if payload.DuplicateWarning == "" {
		t.Error("On-demand duplicates must carry a warning")
	}
	if f.store.Len() != 1 {
		t.Errorf("Duplicates must not be stored, store has %d", f.store.Len())
	}
}

func TestRunScheduledAnalysisPostsAndIsolatesFailures(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{
		IsPostWorthy:  true,
		Reasoning:     "good news",
		LinkedInDraft: "We hit a milestone worth sharing today",
	}}

	page := &repo.HistoryPage{}
	for _, m := range qualifyingMessages(6) {
		page.Messages = append(page.Messages, repo.RawMessage{User: m.User, Text: m.Text, TS: m.TS})
	}
	chat := &mockChatRepo{
		pages: map[string]*repo.HistoryPage{"C2": page},
		errs:  map[string]error{"C1": repo.ErrNotInChannel},
	}
	f := newFixture(analysis, chat)

	f.svc.RunScheduledAnalysis(context.Background(), []string{"C1", "C2"}, 1)

	if len(chat.posted) != 1 || chat.posted[0] != "C2" {
		t.Errorf("Expected a post to C2 despite C1 failing, got %v", chat.posted)
	}
}

func TestRunScheduledAnalysisDropsDuplicatesSilently(t *testing.T) {
	draft := "Repeated milestone announcement text"
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{
		IsPostWorthy:  true,
		Reasoning:     "again",
		LinkedInDraft: draft,
	}}

	page := &repo.HistoryPage{}
	for _, m := range qualifyingMessages(6) {
		page.Messages = append(page.Messages, repo.RawMessage{User: m.User, Text: m.Text, TS: m.TS})
	}
	chat := &mockChatRepo{pages: map[string]*repo.HistoryPage{"C1": page}}
	f := newFixture(analysis, chat)

	f.store.Store(&domain.Suggestion{IsPostWorthy: true, LinkedInDraft: draft})

	f.svc.RunScheduledAnalysis(context.Background(), []string{"C1"}, 1)

	if len(chat.posted) != 0 {
		t.Errorf("Scheduled duplicates must not be posted, got %v", chat.posted)
	}
}

func TestRunSyncAdvancesSyncCheckpoint(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{IsPostWorthy: false, Reasoning: "quiet"}}

	page := &repo.HistoryPage{}
	for _, m := range qualifyingMessages(6) {
		page.Messages = append(page.Messages, repo.RawMessage{User: m.User, Text: m.Text, TS: m.TS})
	}
	chat := &mockChatRepo{pages: map[string]*repo.HistoryPage{"C1": page}}
	f := newFixture(analysis, chat)

	payload := f.svc.RunSync(context.Background(), "C1")

	if payload.Kind != domain.PayloadNotPostWorthy {
		t.Fatalf("Expected NotPostWorthy, got %s", payload.Kind)
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointSync, "C1"); got != "105.000000" {
		t.Errorf("Sync checkpoint = %q, want newest TS", got)
	}
	if got := f.store.GetCheckpoint(usecase.CheckpointAnalyzed, "C1"); got != "105.000000" {
		t.Errorf("Analyzed checkpoint = %q, want newest TS", got)
	}
}

func TestRunBufferAnalysisEndToEnd(t *testing.T) {
	analysis := &mockAnalysisRepo{suggestion: &domain.Suggestion{
		IsPostWorthy:  true,
		Reasoning:     "worth a post",
		LinkedInDraft: "X",
		XDraft:        "Y",
	}}
	f := newFixture(analysis, &mockChatRepo{})

	for i := 0; i < 6; i++ {
		f.buffer.Add("C1", fmt.Sprintf("U%d", i+1), fmt.Sprintf("buffered message %d", i+1), fmt.Sprintf("%d.000100", 200+i))
	}

	payload := f.svc.RunBufferAnalysis(context.Background(), "C1")

	if payload.Kind != domain.PayloadAccepted {
		t.Fatalf("Expected Accepted, got %s (%s)", payload.Kind, payload.Reasoning)
	}
	if !f.store.Contains(usecase.Fingerprint("X")) {
		t.Error("Store should contain the fingerprint of the LinkedIn draft")
	}
	if analysis.transcript == "" {
		t.Fatal("Expected a transcript to be sent")
	}
	if analysis.transcript[0] != '1' {
		t.Errorf("Transcript should be numbered, got %q", analysis.transcript[:20])
	}
}

func TestSingleFlightPerChannel(t *testing.T) {
	f := newFixture(&mockAnalysisRepo{suggestion: &domain.Suggestion{IsPostWorthy: false}}, &mockChatRepo{})

	if !f.svc.tryAcquire("C1") {
		t.Fatal("First acquire should succeed")
	}
	if f.svc.tryAcquire("C1") {
		t.Error("Second acquire for the same channel should fail")
	}
	if !f.svc.tryAcquire("C2") {
		t.Error("Other channels are unaffected")
	}
	f.svc.release("C1")
	if !f.svc.tryAcquire("C1") {
		t.Error("Acquire should succeed after release")
	}
}
