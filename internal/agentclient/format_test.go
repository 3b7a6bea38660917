package agentclient

import (
	"strings"
	"testing"

	"factrelay/internal/domain"
)

func TestFormatVerdictWithEvidence(t *testing.T) {
	conf := 0.85
	v := &domain.Verdict{
		Status:     domain.StatusOK,
		Verdict:    domain.VerdictFalse,
		Confidence: &conf,
		Evidence: []domain.Evidence{
			{Title: "Fact check report", URL: "https://example.com/report", Snippet: "The claim is fabricated."},
			{URL: "https://example.org/archive"},
		},
	}

	got := Format(v)
	if !strings.HasPrefix(got, "❌ False (confidence 85%)") {
		t.Errorf("unexpected heading: %q", got)
	}
	if !strings.Contains(got, "Sources:") {
		t.Error("evidence list missing")
	}
	if !strings.Contains(got, "1. Fact check report") || !strings.Contains(got, "https://example.com/report") {
		t.Errorf("first source not rendered: %q", got)
	}
	if !strings.Contains(got, "2. https://example.org/archive") {
		t.Errorf("untitled source must fall back to its URL: %q", got)
	}

	if again := Format(v); again != got {
		t.Error("formatting must be deterministic")
	}
}

func TestFormatUnknownVerdict(t *testing.T) {
	v := &domain.Verdict{Status: domain.StatusOK, Verdict: "DISPUTED"}
	got := Format(v)
	if !strings.Contains(got, "Disputed") {
		t.Errorf("unknown verdict must be title-cased, got %q", got)
	}
}

func TestFormatErrorStatus(t *testing.T) {
	v := &domain.Verdict{Status: domain.StatusError}
	got := Format(v)
	if !strings.Contains(got, "could not check") {
		t.Errorf("unexpected error text: %q", got)
	}
}

func TestFormatNoConfidence(t *testing.T) {
	v := &domain.Verdict{Status: domain.StatusOK, Verdict: domain.VerdictVerified}
	got := Format(v)
	if strings.Contains(got, "confidence") {
		t.Errorf("confidence must be omitted when absent: %q", got)
	}
	if got != "✅ Verified" {
		t.Errorf("unexpected output: %q", got)
	}
}
