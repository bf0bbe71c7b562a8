package classify

import "strings"

// ContextScorer turns free-form window context into a severity. Pluggable so
// detection keyword sets can be swapped and tested independently of the
// scanning loops that collect the titles.
type ContextScorer interface {
	// Score analyzes window titles and returns the keyword hit count, the
	// named services recognized, and the resulting severity. Suppressed means
	// the titles showed no upload intent at all.
	Score(titles []string) (score int, services []string, severity Severity)
}

// DefaultUploadKeywords are the generic upload-intent words looked for in
// browser window titles.
var DefaultUploadKeywords = []string{
	"upload", "file", "attach", "drag", "drop", "browse",
	"select", "choose", "gmail", "drive", "dropbox", "onedrive",
}

// serviceNames maps title substrings to the service label reported in the
// incident context.
var serviceNames = []struct {
	substrings []string
	label      string
}{
	{[]string{"gmail", "google drive"}, "Google Services"},
	{[]string{"dropbox"}, "Dropbox"},
	{[]string{"onedrive", "outlook"}, "Microsoft OneDrive/Outlook"},
	{[]string{"facebook", "instagram"}, "Social Media"},
	{[]string{"linkedin", "twitter"}, "Professional Networks"},
}

// UploadScorer scores browser window titles for upload intent.
type UploadScorer struct {
	keywords []string
}

// NewUploadScorer builds a scorer. A nil keyword slice selects the defaults.
func NewUploadScorer(keywords []string) *UploadScorer {
	if keywords == nil {
		keywords = DefaultUploadKeywords
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &UploadScorer{keywords: lowered}
}

// Score implements ContextScorer. A keyword score of two or more, or any
// recognized service name, is HIGH; a single keyword hit is MEDIUM; clean
// titles are suppressed.
func (u *UploadScorer) Score(titles []string) (int, []string, Severity) {
	score := 0
	var services []string
	seen := make(map[string]bool)

	for _, title := range titles {
		lower := strings.ToLower(title)
		for _, kw := range u.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, svc := range serviceNames {
			for _, sub := range svc.substrings {
				if strings.Contains(lower, sub) && !seen[svc.label] {
					seen[svc.label] = true
					services = append(services, svc.label)
					break
				}
			}
		}
	}

	switch {
	case score >= 2 || len(services) > 0:
		return score, services, SeverityHigh
	case score == 1:
		return score, services, SeverityMedium
	default:
		return score, services, Suppressed
	}
}
