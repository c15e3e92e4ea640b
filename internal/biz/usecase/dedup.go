package usecase

import (
	"strings"

	"github.com/postworthy/postbot/internal/biz/domain"
)

// DefaultDuplicateThreshold is the similarity above which a suggestion
// counts as a duplicate of a stored one.
const DefaultDuplicateThreshold = 0.8

// nearExactSimilarity short-circuits the scan: anything this close is a
// duplicate regardless of what the rest of the store holds.
const nearExactSimilarity = 0.99

// DuplicateCheck is the result of comparing a candidate against the
// stored suggestions.
type DuplicateCheck struct {
	IsDuplicate bool
	Similarity  float64
	MatchedWith *domain.Suggestion
}

// DedupUsecase decides whether a new suggestion repeats a stored one,
// using Jaccard similarity over fingerprint tokens. Drafts are model
// generated free text, so near-identical ideas rarely produce identical
// strings; token overlap is a cheap deterministic approximation that is
// adequate at this scale (at most the store's capacity, no index).
type DedupUsecase struct {
	store     *SuggestionStore
	threshold float64
}

// NewDedupUsecase creates a new dedup usecase
func NewDedupUsecase(store *SuggestionStore, threshold float64) *DedupUsecase {
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &DedupUsecase{store: store, threshold: threshold}
}

// Similarity returns a symmetric score in [0,1] for two texts.
// Identical fingerprints (including both empty) score exactly 1; a
// single empty token set scores 0; otherwise the score is the Jaccard
// ratio of the fingerprints' whitespace-delimited token sets.
func (uc *DedupUsecase) Similarity(a, b string) float64 {
	fa, fb := Fingerprint(a), Fingerprint(b)
	if fa == fb {
		return 1.0
	}

	tokensA, tokensB := strings.Fields(fa), strings.Fields(fb)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, t := range tokensA {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// CheckDuplicate compares the candidate's primary draft against every
// stored suggestion, tracking the best match. An empty store or a
// candidate without usable text returns a zero result without scanning.
func (uc *DedupUsecase) CheckDuplicate(candidate *domain.Suggestion) DuplicateCheck {
	text := candidate.PrimaryDraft()
	if text == "" {
		return DuplicateCheck{}
	}

	records := uc.store.ListAll()
	if len(records) == 0 {
		return DuplicateCheck{}
	}

	var best DuplicateCheck
	for _, rec := range records {
		sim := uc.Similarity(text, rec.Suggestion.PrimaryDraft())
		if sim > best.Similarity {
			best.Similarity = sim
			best.MatchedWith = rec.Suggestion
		}
		if sim >= nearExactSimilarity {
			break
		}
	}

	best.IsDuplicate = best.Similarity >= uc.threshold
	return best
}
