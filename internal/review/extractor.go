package review

import (
	"regexp"
	"strings"
)

// Categories assigned to a review
const (
	CategoryComplaint = "complaint"
	CategoryPositive  = "positive"
	CategoryNeutral   = "neutral"
	CategoryOther     = "other"
)

// EmptySummary is the summary of a blank review
const EmptySummary = "Empty review"

// Understanding is what the extractor derives from one review
type Understanding struct {
	Summary  string   `json:"summary"`
	Category string   `json:"category"`
	Issues   []string `json:"issues,omitempty"`
}

var issuePatterns = []string{
	`(?:delivery|deliver|delivered).*?(?:late|delay|slow|delayed)`,
	`(?:food|order|item).*?(?:missing|not.*?delivered|absent)`,
	`(?:food|order).*?(?:wrong|incorrect|different)`,
	`(?:food|item).*?(?:stale|expired|bad.*?quality|poor.*?quality)`,
	`(?:delivery.*?partner|delivery.*?guy|rider|executive).*?(?:rude|impolite|unprofessional)`,
	`(?:customer.*?service|support).*?(?:bad|poor|worst|terrible)`,
	`(?:app|application).*?(?:bug|error|crash|not.*?working)`,
	`(?:payment|refund).*?(?:issue|problem|not.*?working)`,
	`(?:price|cost|charge).*?(?:high|expensive|overpriced)`,
	`(?:order).*?(?:cancel|cancelled|cancellation)`,
}

var importantWords = map[string]bool{
	"delivery": true, "food": true, "order": true, "service": true,
	"app": true, "payment": true, "refund": true, "quality": true,
	"missing": true, "wrong": true, "late": true, "rude": true,
}

var (
	disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:-]`)
	sentenceBreak   = regexp.MustCompile(`[.!?]+`)
)

const (
	maxSummaryRunes  = 100
	longReviewWords  = 20
	maxKeyPhrases    = 5
	summaryKeyPhrase = 3
)

// Extractor turns raw review text into a short issue summary using fixed
// phrase patterns
type Extractor struct {
	patterns []*regexp.Regexp
}

// NewExtractor compiles the issue patterns
func NewExtractor() *Extractor {
	e := &Extractor{}
	for _, p := range issuePatterns {
		e.patterns = append(e.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return e
}

// Understand summarises and categorises a review. rating is optional.
func (e *Extractor) Understand(text string, rating *int) Understanding {
	cleaned := cleanText(text)
	if cleaned == "" {
		return Understanding{Summary: EmptySummary, Category: CategoryOther}
	}

	issues := e.extractIssues(cleaned)
	return Understanding{
		Summary:  summarize(cleaned, issues),
		Category: categorize(issues, rating),
		Issues:   issues,
	}
}

func cleanText(text string) string {
	text = disallowedChars.ReplaceAllString(text, "")
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// extractIssues returns every pattern match in pattern order, without duplicates.
func (e *Extractor) extractIssues(text string) []string {
	seen := make(map[string]bool)
	var issues []string
	for _, re := range e.patterns {
		for _, m := range re.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				issues = append(issues, m)
			}
		}
	}
	return issues
}

func summarize(text string, issues []string) string {
	if len(issues) > 0 {
		return normalizeIssue(issues[0])
	}

	words := strings.Fields(text)
	if len(words) > longReviewWords {
		if phrases := keyPhrases(words); len(phrases) > 0 {
			if len(phrases) > summaryKeyPhrase {
				phrases = phrases[:summaryKeyPhrase]
			}
			return strings.Join(phrases, " ")
		}
	}

	if first := strings.TrimSpace(sentenceBreak.Split(text, 2)[0]); first != "" {
		return truncateRunes(first, maxSummaryRunes)
	}
	return truncateRunes(text, maxSummaryRunes)
}

// normalizeIssue maps a matched phrase onto a canonical topic summary.
func normalizeIssue(issue string) string {
	s := strings.ToLower(issue)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(s, w) {
				return true
			}
		}
		return false
	}

	if has("delivery") && has("late", "delay", "slow") {
		return "Delivery delay or late delivery"
	}
	if has("delivery") && has("partner", "guy", "rider") && has("rude", "impolite") {
		return "Delivery partner rude or unprofessional"
	}
	if has("food", "item") {
		switch {
		case has("missing", "not delivered"):
			return "Missing items in order"
		case has("wrong", "incorrect"):
			return "Wrong items delivered"
		case has("stale", "expired"):
			return "Food stale or expired"
		case has("bad", "poor"):
			return "Poor food quality"
		}
	}
	if has("customer service", "support") {
		return "Poor customer service"
	}
	if has("app") && has("bug", "error", "crash") {
		return "App bug or error"
	}
	if has("payment", "refund") {
		return "Payment or refund issue"
	}
	if has("price", "cost", "expensive") {
		return "High prices or overpriced"
	}
	if has("cancel") {
		return "Order cancellation issue"
	}
	return issue
}

// keyPhrases returns up to five windows of two words either side of each
// important word.
func keyPhrases(words []string) []string {
	var phrases []string
	for i, w := range words {
		if !importantWords[w] {
			continue
		}
		start := max(0, i-2)
		end := min(len(words), i+3)
		phrases = append(phrases, strings.Join(words[start:end], " "))
		if len(phrases) == maxKeyPhrases {
			break
		}
	}
	return phrases
}

func categorize(issues []string, rating *int) string {
	if rating != nil {
		switch {
		case *rating <= 2:
			return CategoryComplaint
		case *rating >= 4:
			return CategoryPositive
		default:
			return CategoryNeutral
		}
	}

	if len(issues) == 0 {
		return CategoryOther
	}

	joined := strings.ToLower(strings.Join(issues, " "))
	for _, w := range []string{"bad", "worst", "poor", "terrible", "missing", "wrong"} {
		if strings.Contains(joined, w) {
			return CategoryComplaint
		}
	}
	for _, w := range []string{"good", "great", "excellent", "love", "best"} {
		if strings.Contains(joined, w) {
			return CategoryPositive
		}
	}
	return CategoryNeutral
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
