package agentclient

import (
	"fmt"
	"strings"

	"factrelay/internal/domain"
)

// verdictLabels maps known verdict values to display headings. Unknown
// verdicts fall back to a title-cased label so new agent vocabulary never
// breaks rendering.
var verdictLabels = map[string]string{
	domain.VerdictVerified:   "✅ Verified",
	domain.VerdictFalse:      "❌ False",
	domain.VerdictMisleading: "⚠️ Misleading",
	domain.VerdictUnverified: "❓ Unverified",
}

// Format synthesizes the single human-readable verdict text rendered by
// every channel. Deterministic: same verdict in, same text out.
func Format(v *domain.Verdict) string {
	if v.Status != domain.StatusOK {
		return "⚠️ The verification service could not check this claim."
	}

	label, ok := verdictLabels[strings.ToLower(v.Verdict)]
	if !ok {
		label = "🔎 " + titleCase(v.Verdict)
	}

	var sb strings.Builder
	sb.WriteString(label)
	if v.Confidence != nil {
		fmt.Fprintf(&sb, " (confidence %.0f%%)", *v.Confidence*100)
	}

	if len(v.Evidence) > 0 {
		sb.WriteString("\n\nSources:")
		for i, ev := range v.Evidence {
			title := ev.Title
			if title == "" {
				title = ev.URL
			}
			fmt.Fprintf(&sb, "\n%d. %s", i+1, title)
			if ev.URL != "" && ev.Title != "" {
				fmt.Fprintf(&sb, "\n   %s", ev.URL)
			}
			if ev.Snippet != "" {
				fmt.Fprintf(&sb, "\n   %s", ev.Snippet)
			}
		}
	}
	return sb.String()
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
