package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/order-status-assistant/internal/core/domain"
)

const minOrderIDLength = 5

// fieldMatcher finds candidate values for one field. Matchers are evaluated in
// slice order and the first matcher that yields a valid candidate wins.
type fieldMatcher struct {
	name  string
	re    *regexp.Regexp
	check func(text string, start, end int) bool
}

func (m fieldMatcher) candidates(text string) []string {
	var out []string
	for _, loc := range m.re.FindAllStringSubmatchIndex(text, -1) {
		start, end := loc[2], loc[3]
		if start < 0 {
			continue
		}
		if m.check != nil && !m.check(text, start, end) {
			continue
		}
		out = append(out, text[start:end])
	}
	return out
}

var mobileMatchers = []fieldMatcher{
	{
		name:  "cue",
		re:    regexp.MustCompile(`(?i)\b(?:mobile|number|phone|contact)(?:\s+(?:number|no\.?|num))?(?:\s*(?:is|:|-))*\s*(\d{10})`),
		check: noDigitAfter,
	},
	{
		name:  "standalone",
		re:    regexp.MustCompile(`(\d{10})`),
		check: isolatedToken,
	},
	{
		name:  "country_code",
		re:    regexp.MustCompile(`(?:\+|\b)91[\s-]?(\d{10})`),
		check: noDigitAfter,
	},
	{
		name:  "grouped",
		re:    regexp.MustCompile(`(\d{3}[\s-]?\d{3}[\s-]?\d{4})`),
		check: isolatedToken,
	},
}

var orderIDMatchers = []fieldMatcher{
	{
		name:  "explicit_is",
		re:    regexp.MustCompile(`(?i)\border\s*(?:id|number|no|num)\b\.?\s*(?:is|was)\s*[:#-]?\s*([a-z]{1,4}[\s-]?\d{3,6})`),
		check: orderIDBoundary,
	},
	{
		name:  "explicit_label",
		re:    regexp.MustCompile(`(?i)\border\s*(?:id|number|no|num)\b\.?\s*[:#-]?\s*([a-z]{1,4}[\s-]?\d{3,6})`),
		check: orderIDBoundary,
	},
	{
		name:  "order_cue",
		re:    regexp.MustCompile(`(?i)\border\s*[:#-]?\s*([a-z]{1,4}[\s-]?\d{3,6})`),
		check: orderIDBoundary,
	},
	{
		name:  "standalone",
		re:    regexp.MustCompile(`(?i)\b([a-z]{2,4}\d{4,6})\b`),
		check: orderIDBoundary,
	},
}

// Cue filler words. A capture such as "id 12345" is the label plus a bare
// number, so these prefixes are rejected only when split from the digits.
var orderIDFillerPrefixes = map[string]struct{}{
	"IS": {}, "ID": {}, "NO": {}, "NUM": {}, "WAS": {}, "MY": {}, "IT": {},
}

var (
	nameCuePattern     = regexp.MustCompile(`(?:[Mm]y name is|[Nn]ame is|[Tt]his is|I am|I'm)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)
	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)
)

var nameFillerWords = map[string]struct{}{
	"Hi": {}, "Hello": {}, "Hey": {}, "Dear": {}, "Sir": {}, "Madam": {}, "Please": {},
	"My": {}, "The": {}, "This": {}, "That": {}, "It": {}, "Is": {}, "Im": {},
	"Order": {}, "Mobile": {}, "Phone": {}, "Number": {}, "Contact": {}, "Id": {},
	"Can": {}, "Could": {}, "Would": {}, "What": {}, "Where": {}, "When": {}, "Why": {}, "How": {},
	"Yes": {}, "No": {}, "Thanks": {}, "Thank": {}, "Good": {}, "Morning": {}, "Evening": {}, "Afternoon": {},
	"Amazon": {}, "Status": {}, "Check": {}, "Tell": {}, "Want": {}, "Need": {}, "And": {}, "Also": {},
}

// extractMobile runs the mobile matchers in priority order.
// Within one matcher a number starting with 9 beats 6-8, which beats anything else.
func extractMobile(text string) (string, bool) {
	for _, m := range mobileMatchers {
		best, bestRank := "", -1
		for _, raw := range m.candidates(text) {
			digits := domain.NormalizeMobile(raw)
			if len(digits) != domain.MobileNumberLength {
				continue
			}
			if rank := mobileRank(digits); rank > bestRank {
				best, bestRank = digits, rank
			}
		}
		if bestRank >= 0 {
			return best, true
		}
	}
	return "", false
}

func mobileRank(digits string) int {
	switch digits[0] {
	case '9':
		return 2
	case '6', '7', '8':
		return 1
	default:
		return 0
	}
}

// extractOrderID runs the order-id matchers in priority order and returns the
// first normalized candidate that survives validation.
func extractOrderID(text string) (string, bool) {
	for _, m := range orderIDMatchers {
		for _, raw := range m.candidates(text) {
			id := domain.NormalizeOrderID(raw)
			if !validOrderID(id, strings.ContainsAny(raw, " \t-")) {
				continue
			}
			return id, true
		}
	}
	return "", false
}

func validOrderID(id string, spaced bool) bool {
	if len(id) < minOrderIDLength {
		return false
	}
	letters := 0
	for letters < len(id) && id[letters] >= 'A' && id[letters] <= 'Z' {
		letters++
	}
	if letters == 0 {
		return false
	}
	if _, filler := orderIDFillerPrefixes[id[:letters]]; filler && spaced {
		return false
	}
	for _, c := range id[letters:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return letters < len(id)
}

// extractName is a low-confidence guess used only when no AI answer exists.
func extractName(text string) (string, bool) {
	if loc := nameCuePattern.FindStringSubmatchIndex(text); loc != nil {
		name := text[loc[2]:loc[3]]
		first := strings.Fields(name)[0]
		if _, filler := nameFillerWords[first]; !filler && noDigitAfter(text, loc[2], loc[3]) {
			return name, true
		}
	}
	for _, loc := range capitalizedPattern.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if _, filler := nameFillerWords[token]; filler {
			continue
		}
		return token, true
	}
	return "", false
}

func noDigitAfter(text string, _, end int) bool {
	return end >= len(text) || !isDigit(text[end])
}

func isolatedToken(text string, start, end int) bool {
	if start > 0 && isAlnum(text[start-1]) {
		return false
	}
	return end >= len(text) || !isAlnum(text[end])
}

// orderIDBoundary rejects candidates glued to extra digits, which are almost
// always a slice of a phone number rather than an order code.
func orderIDBoundary(text string, start, end int) bool {
	if start > 0 && isDigit(text[start-1]) {
		return false
	}
	if end >= len(text) {
		return true
	}
	if isDigit(text[end]) {
		return false
	}
	spaced := strings.ContainsAny(text[start:end], " \t-")
	if spaced && (text[end] == ' ' || text[end] == '-') && end+1 < len(text) && isDigit(text[end+1]) {
		return false
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
