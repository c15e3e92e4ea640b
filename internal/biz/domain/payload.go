package domain

// PayloadKind discriminates the outcome of an analysis run.
type PayloadKind string

const (
	PayloadNotEnoughMessages PayloadKind = "not_enough_messages"
	PayloadNothingNew        PayloadKind = "nothing_new"
	PayloadNotPostWorthy     PayloadKind = "not_post_worthy"
	PayloadAnalysisFailed    PayloadKind = "analysis_failed"
	PayloadAccepted          PayloadKind = "accepted"
)

// PresentationPayload is the tagged result handed to the presentation
// layer. Only the fields for the matching Kind are populated.
type PresentationPayload struct {
	Kind PayloadKind

	// PayloadNotEnoughMessages
	Needed int
	Have   int

	// PayloadNotPostWorthy / PayloadAnalysisFailed / PayloadAccepted
	Reasoning string

	// PayloadAccepted
	LinkedInDraft string
	XDraft        string

	// Non-empty when the accepted suggestion closely matches an earlier
	// one. The scheduled path drops such results; the on-demand path
	// shows the draft together with this warning.
	DuplicateWarning string
}

// NotEnoughMessages builds the below-threshold outcome.
func NotEnoughMessages(needed, have int) PresentationPayload {
	return PresentationPayload{Kind: PayloadNotEnoughMessages, Needed: needed, Have: have}
}

// NothingNew builds the stale-checkpoint outcome.
func NothingNew() PresentationPayload {
	return PresentationPayload{Kind: PayloadNothingNew}
}

// NotPostWorthy builds the rejected-content outcome.
func NotPostWorthy(reasoning string) PresentationPayload {
	return PresentationPayload{Kind: PayloadNotPostWorthy, Reasoning: reasoning}
}

// AnalysisFailed builds the failure outcome.
func AnalysisFailed(reasoning string) PresentationPayload {
	return PresentationPayload{Kind: PayloadAnalysisFailed, Reasoning: reasoning}
}

// Accepted builds the success outcome from a suggestion.
func Accepted(s *Suggestion, duplicateWarning string) PresentationPayload {
	return PresentationPayload{
		Kind:             PayloadAccepted,
		Reasoning:        s.Reasoning,
		LinkedInDraft:    s.LinkedInDraft,
		XDraft:           s.XDraft,
		DuplicateWarning: duplicateWarning,
	}
}
