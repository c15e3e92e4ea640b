package repo

import (
	"context"

	"github.com/postworthy/postbot/internal/biz/domain"
)

// AnalysisRepo is the analysis model interface.
//
// Analyze submits a numbered transcript and returns the model's judgment.
// Content-level problems (empty response, unparseable output) are folded
// into a Suggestion with Error=true rather than returned as an error;
// the error return is reserved for hard call failures (transport,
// timeout), so callers only need to handle those.
type AnalysisRepo interface {
	Analyze(ctx context.Context, transcript string) (*domain.Suggestion, error)
}
