package report

import (
	"strings"

	"contractdiff/internal/extract"
)

// implicationRule maps keyword stems found among changed terms to a typical
// contractual implication. Stems cover Spanish and English contract wording.
type implicationRule struct {
	stems   []string
	message string
}

var implicationRules = []implicationRule{
	{
		stems:   []string{"penaliz", "penalty", "penalties", "multa"},
		message: "Increases financial exposure through penalties.",
	},
	{
		stems:   []string{"rescis", "rescision", "resoluci", "terminat"},
		message: "Reduces the ability to terminate the contract early.",
	},
	{
		stems:   []string{"plazo", "fecha", "termino", "vence", "deadline"},
		message: "Modifies deadlines; may affect deliverables and SLAs.",
	},
	{
		stems:   []string{"pago", "pagos", "factur", "payment", "invoic"},
		message: "Impacts cash flow or payment and collection terms.",
	},
	{
		stems:   []string{"indemn"},
		message: "Increases potential indemnification obligations.",
	},
	{
		stems:   []string{"confidenc", "confidential"},
		message: "Changes confidentiality terms; risk of information leakage.",
	},
	{
		stems:   []string{"jurisdic", "ley aplicable", "arbitra", "governing law"},
		message: "Changes jurisdiction or the dispute resolution mechanism.",
	},
	{
		stems:   []string{"garant", "warrant"},
		message: "Modifies warranties and liability for defects.",
	},
}

// Implications scans the changed terms for sensitive contract wording and
// returns the matching implications, deduplicated and in rule order. This is
// a heuristic screen, not legal advice.
func Implications(terms []string) []string {
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		normalized = append(normalized, extract.Normalize(t))
	}
	haystack := " " + strings.Join(normalized, " ") + " "

	var out []string
	for _, rule := range implicationRules {
		for _, stem := range rule.stems {
			if strings.Contains(haystack, stem) {
				out = append(out, rule.message)
				break
			}
		}
	}
	return out
}
