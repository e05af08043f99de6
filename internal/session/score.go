package session

import (
	"math"
	"strings"
)

// recruiterKeywords identify recruiting roles in a contact's title.
var recruiterKeywords = []string{"recruiter", "talent", "hr", "hiring", "recruitment"}

// IsRecruiter reports whether a contact's title marks them as a recruiter.
// Matching is a case-insensitive substring check.
func IsRecruiter(c Contact) bool {
	title := strings.ToLower(c.Title)
	for _, kw := range recruiterKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// CompatibilityScore rates how well a job description matches the given
// skill keywords: the fraction of keywords found in the description as a
// percentage, rounded to two decimals. Matching is a case-insensitive
// substring check. An empty description or keyword list scores zero.
func CompatibilityScore(description string, keywords []string) float64 {
	if description == "" || len(keywords) == 0 {
		return 0
	}
	desc := strings.ToLower(description)
	matches := 0
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(desc, strings.ToLower(kw)) {
			matches++
		}
	}
	score := float64(matches) / float64(len(keywords)) * 100
	return math.Round(score*100) / 100
}
