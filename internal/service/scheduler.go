package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Scheduler drives periodic channel analysis
type Scheduler struct {
	analyzer *AnalyzerService

	channels      []string
	lookbackHours int
	interval      time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(analyzer *AnalyzerService, channels []string, lookbackHours int, interval time.Duration) *Scheduler {
	return &Scheduler{
		analyzer:      analyzer,
		channels:      channels,
		lookbackHours: lookbackHours,
		interval:      interval,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop()

	fmt.Printf("[Scheduler] Started with interval %v\n", s.interval)
}

// Stop stops the scheduler and waits for an in-progress tick to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	fmt.Println("[Scheduler] Stopped")
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.analyzer.RunScheduledAnalysis(s.ctx, s.channels, s.lookbackHours)
		}
	}
}
