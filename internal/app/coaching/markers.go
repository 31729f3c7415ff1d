package coaching

import (
	"regexp"
	"strings"
)

// Markers embedded by the chat backend in otherwise free text.
const (
	PrincipleMarker  = "PRINCIPLE_CONFIRMED:"
	CommitmentMarker = "COMMITMENT_OPTIONS:"

	// MaxCommitmentOptions caps the options offered to the user.
	MaxCommitmentOptions = 3
)

var optionNumbering = regexp.MustCompile(`^\d+\.\s*`)

// ParsePrincipleConfirmed extracts the principle that follows the first
// PRINCIPLE_CONFIRMED: marker, up to the end of that line. The marker may sit
// anywhere in the text. ok is false when the marker is missing or nothing but
// whitespace follows it on its own line. Text on later lines is not used, so
// "PRINCIPLE_CONFIRMED:\nI ask first" is not a confirmation and onboarding
// stays in Conversing until the model repeats the marker with the principle
// on the same line.
func ParsePrincipleConfirmed(text string) (principle string, ok bool) {
	_, after, found := strings.Cut(text, PrincipleMarker)
	if !found {
		return "", false
	}
	line, _, _ := strings.Cut(after, "\n")
	principle = strings.TrimSpace(line)
	return principle, principle != ""
}

// ParseCommitmentOptions extracts up to MaxCommitmentOptions options from the
// block following the first COMMITMENT_OPTIONS: marker. Each line is
// de-numbered and trimmed; blank lines are dropped. Lines without a number
// prefix are kept as they are. A result with no options means the marker is
// treated as absent.
//
// Callers must only pass a completed assistant turn: a partial stream would
// yield truncated options.
func ParseCommitmentOptions(text string) []string {
	_, block, found := strings.Cut(text, CommitmentMarker)
	if !found {
		return nil
	}
	var options []string
	for _, line := range strings.Split(strings.TrimSpace(block), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(optionNumbering.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		options = append(options, line)
		if len(options) == MaxCommitmentOptions {
			break
		}
	}
	return options
}

// DisplayText strips marker content from an assistant turn: for the principle
// marker, the marker and the rest of its line; for the commitment marker,
// everything from the marker to the end of the text.
func DisplayText(text string) string {
	if before, _, found := strings.Cut(text, CommitmentMarker); found {
		text = before
	}
	for {
		i := strings.Index(text, PrincipleMarker)
		if i < 0 {
			break
		}
		end := strings.IndexByte(text[i:], '\n')
		if end < 0 {
			text = text[:i]
			break
		}
		text = text[:i] + text[i+end:]
	}
	return strings.TrimSpace(text)
}
