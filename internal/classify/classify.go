package classify

import (
	"regexp"
	"strings"

	"github.com/satriajat/helpdesk-management/internal/ticket"
)

// Result is a routing suggestion, never an automatic action: a human agent
// confirms category and team before anything moves.
type Result struct {
	Category   string  `json:"category"`
	Priority   string  `json:"priority"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?\d[\d\s\-()]{7,}\d)`)
	idPattern    = regexp.MustCompile(`\b\d{10,16}\b`)
)

// MaskPII strips emails, phone numbers and long digit runs before any text
// leaves the request path, so classifier inputs and retrieval queries never
// carry raw personal data.
func MaskPII(text string) string {
	masked := emailPattern.ReplaceAllString(text, "[EMAIL]")
	masked = phonePattern.ReplaceAllString(masked, "[PHONE]")
	masked = idPattern.ReplaceAllString(masked, "[ID]")
	return masked
}

// categoryRules map keyword groups to a category, first hit wins in order.
var categoryRules = []struct {
	category string
	keywords []string
}{
	{"ACCOUNT", []string{"password", "login", "account", "locked", "credential"}},
	{"NETWORK", []string{"wifi", "network", "internet", "connection", "vpn"}},
	{"HARDWARE", []string{"printer", "projector", "laptop", "screen", "keyboard", "broken"}},
	{"FACILITY", []string{"room", "door", "aircon", "light", "chair", "desk"}},
	{"SOFTWARE", []string{"install", "software", "application", "update", "license"}},
}

var urgentKeywords = []string{"urgent", "emergency", "down", "outage", "cannot work", "exam"}

// Classify scores the masked text against the keyword tables.
func Classify(title, description string) Result {
	text := strings.ToLower(MaskPII(title + " " + description))

	result := Result{
		Category:   "GENERAL",
		Priority:   ticket.PriorityMedium,
		Confidence: 0.2,
		Rationale:  "no category keywords matched",
	}

	for _, rule := range categoryRules {
		hits := 0
		var matched []string
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				hits++
				matched = append(matched, kw)
			}
		}
		if hits > 0 {
			result.Category = rule.category
			result.Confidence = 0.4 + 0.15*float64(hits)
			if result.Confidence > 0.95 {
				result.Confidence = 0.95
			}
			result.Rationale = "matched: " + strings.Join(matched, ", ")
			break
		}
	}

	for _, kw := range urgentKeywords {
		if strings.Contains(text, kw) {
			result.Priority = ticket.PriorityHigh
			result.Rationale += "; urgency keyword: " + kw
			break
		}
	}

	return result
}
