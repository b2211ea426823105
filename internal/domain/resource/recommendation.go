package resource

import "github.com/kailas-cloud/readnext/internal/domain/text"

// Recommendation is the public view of a ranked resource.
// ID, vectors and similarity never leave the service.
type Recommendation struct {
	Title       string
	Description string
	URL         string
}

// ToRecommendation strips internal fields and trims the description to maxWords.
func ToRecommendation(s Scored, maxWords int) Recommendation {
	return Recommendation{
		Title:       s.Title,
		Description: text.TrimDescription(s.Description, maxWords),
		URL:         s.URL,
	}
}
