package domain

import "time"

// Suggestion is the analysis model's judgment of a conversation window.
// It is produced only by the analysis boundary and never mutated after
// creation. Error marks a content-level failure (empty or unparseable
// model output); such suggestions are always IsPostWorthy=false.
type Suggestion struct {
	IsPostWorthy  bool
	Reasoning     string
	LinkedInDraft string
	XDraft        string
	Error         bool
}

// PrimaryDraft returns the text used for fingerprinting and duplicate
// comparison: the LinkedIn draft when present, otherwise the X draft.
func (s *Suggestion) PrimaryDraft() string {
	if s.LinkedInDraft != "" {
		return s.LinkedInDraft
	}
	return s.XDraft
}

// SuggestionRecord is a stored suggestion keyed by its fingerprint.
type SuggestionRecord struct {
	Fingerprint string
	Suggestion  *Suggestion
	StoredAt    time.Time
}
