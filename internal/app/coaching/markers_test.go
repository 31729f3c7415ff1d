package coaching_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/ledger/internal/app/coaching"
)

func TestParsePrincipleConfirmed(t *testing.T) {
	text := "Good point.\nPRINCIPLE_CONFIRMED: I listen fully, even when I'm busy\n"

	p, ok := coaching.ParsePrincipleConfirmed(text)
	assert.True(t, ok)
	assert.Equal(t, "I listen fully, even when I'm busy", p)
	assert.Equal(t, "Good point.", coaching.DisplayText(text))
}

func TestParsePrincipleConfirmedEdgeCases(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"absent", "What do you wish you'd said instead?", "", false},
		{"empty after marker", "Great.\nPRINCIPLE_CONFIRMED:\n", "", false},
		{"whitespace after marker", "PRINCIPLE_CONFIRMED:   ", "", false},
		{"text on next line is not taken", "PRINCIPLE_CONFIRMED:\nI speak up", "", false},
		{"mid line marker", "Locked in. PRINCIPLE_CONFIRMED: I speak up, even when nervous", "I speak up, even when nervous", true},
		{"first marker wins", "PRINCIPLE_CONFIRMED: A\nPRINCIPLE_CONFIRMED: B", "A", true},
		{"crlf", "PRINCIPLE_CONFIRMED: I ask first, even when rushed\r\n", "I ask first, even when rushed", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := coaching.ParsePrincipleConfirmed(tc.text)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommitmentOptions(t *testing.T) {
	text := "Nice work.\nCOMMITMENT_OPTIONS:\n1. Email them today\n2. Wait until Monday\n3. Ask a peer first\n"

	got := coaching.ParseCommitmentOptions(text)
	want := []string{"Email them today", "Wait until Monday", "Ask a peer first"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Nice work.", coaching.DisplayText(text))
}

func TestParseCommitmentOptionsKeepsFirstThree(t *testing.T) {
	text := "COMMITMENT_OPTIONS:\n1. a\n2. b\n3. c\n4. d\n5. e"

	assert.Equal(t, []string{"a", "b", "c"}, coaching.ParseCommitmentOptions(text))
}

func TestParseCommitmentOptionsBlankBlock(t *testing.T) {
	assert.Empty(t, coaching.ParseCommitmentOptions("COMMITMENT_OPTIONS:\n\n\n"))
	assert.Empty(t, coaching.ParseCommitmentOptions("no marker here\n1. something"))
}

func TestParseCommitmentOptionsLooseFormatting(t *testing.T) {
	text := "Try this.\n  COMMITMENT_OPTIONS:\n  1. Block 10 minutes\n\n  2.Write the first line\n  Just start\n"

	got := coaching.ParseCommitmentOptions(text)
	assert.Equal(t, []string{"Block 10 minutes", "Write the first line", "Just start"}, got)
	assert.Equal(t, "Try this.", coaching.DisplayText(text))
}

func TestDisplayTextWithoutMarkers(t *testing.T) {
	assert.Equal(t, "Sound right?", coaching.DisplayText("  Sound right?\n"))
}

func TestDisplayTextKeepsTextAfterPrincipleLine(t *testing.T) {
	text := "Locked in.\nPRINCIPLE_CONFIRMED: I speak up\nWelcome aboard."

	assert.Equal(t, "Locked in.\n\nWelcome aboard.", coaching.DisplayText(text))
}
