package service

import (
	"fmt"
	"strings"

	"github.com/postworthy/postbot/internal/biz/domain"
)

// FormatPayload renders a presentation payload as a chat reply for the
// command surface.
func FormatPayload(p domain.PresentationPayload) string {
	switch p.Kind {
	case domain.PayloadNotEnoughMessages:
		return fmt.Sprintf("Not enough to go on yet: I have %d messages and need at least %d.", p.Have, p.Needed)
	case domain.PayloadNothingNew:
		return "Nothing new since the last analysis."
	case domain.PayloadNotPostWorthy:
		return "Nothing post-worthy in this window. " + p.Reasoning
	case domain.PayloadAnalysisFailed:
		return "Sorry, I couldn't finish that analysis: " + p.Reasoning
	case domain.PayloadAccepted:
		var sb strings.Builder
		sb.WriteString("*Post-worthy moment spotted*\n")
		sb.WriteString(p.Reasoning)
		if p.LinkedInDraft != "" {
			sb.WriteString("\n\n*LinkedIn draft*\n")
			sb.WriteString(p.LinkedInDraft)
		}
		if p.XDraft != "" {
			sb.WriteString("\n\n*X draft*\n")
			sb.WriteString(p.XDraft)
		}
		if p.DuplicateWarning != "" {
			sb.WriteString("\n\n:warning: ")
			sb.WriteString(p.DuplicateWarning)
		}
		return sb.String()
	default:
		return "Sorry, something went wrong."
	}
}
