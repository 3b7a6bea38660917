package domain

// VerdictStatus is the agent-reported outcome status.
type VerdictStatus string

const (
	StatusOK    VerdictStatus = "ok"
	StatusError VerdictStatus = "error"
)

// Known verdict labels. The agent may introduce new ones; adapters render
// FormattedText verbatim, so unknown labels degrade gracefully.
const (
	VerdictVerified   = "verified"
	VerdictFalse      = "false"
	VerdictUnverified = "unverified"
	VerdictMisleading = "misleading"
)

// Evidence is a single citation backing a verdict.
type Evidence struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet,omitempty"`
	URL     string `json:"url"`
}

// Verdict is the canonical verification result. FormattedText is
// synthesized once by the agent client; every channel renders it
// verbatim or lightly wraps it.
type Verdict struct {
	Status        VerdictStatus `json:"status"`
	Verdict       string        `json:"verdict,omitempty"`
	Confidence    *float64      `json:"confidence,omitempty"`
	Evidence      []Evidence    `json:"evidence"`
	FormattedText string        `json:"-"`
}
