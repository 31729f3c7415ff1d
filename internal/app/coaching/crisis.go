package coaching

import "strings"

// SafetyMessage is shown in place of sending input that trips the crisis gate.
const SafetyMessage = "It sounds like you might be going through something serious. " +
	"If you are in crisis, please reach out to the 988 Suicide & Crisis Lifeline " +
	"(call or text 988, https://988lifeline.org). " +
	"This tool is for leadership coaching, not crisis support."

var crisisKeywords = []string{
	"suicide",
	"suicidal",
	"kill myself",
	"end my life",
	"self-harm",
	"self harm",
	"want to die",
	"don't want to live",
	"hurt myself",
	"no reason to live",
}

// CrisisKeywords returns a copy of the phrases the gate matches on.
func CrisisKeywords() []string {
	out := make([]string, len(crisisKeywords))
	copy(out, crisisKeywords)
	return out
}

// DetectCrisis reports whether text contains any crisis phrase, ignoring case.
//
// This is a plain substring filter. Paraphrases, misspellings and typographic
// apostrophes ("don’t want to live") are not caught; false negatives are a
// known limitation, not something callers should try to patch around here.
func DetectCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, k := range crisisKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
