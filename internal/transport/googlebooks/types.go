package googlebooks

import domres "github.com/kailas-cloud/readnext/internal/domain/resource"

// Volume is a catalog entry reduced to the fields a resource needs.
type Volume struct {
	ID          string
	Title       string
	Description string
	URL         string
	Categories  []string
}

type volumesResponse struct {
	TotalItems int         `json:"totalItems"`
	Items      []apiVolume `json:"items"`
}

type apiVolume struct {
	ID         string        `json:"id"`
	VolumeInfo apiVolumeInfo `json:"volumeInfo"`
}

type apiVolumeInfo struct {
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description"`
	InfoLink    string   `json:"infoLink"`
	Categories  []string `json:"categories"`
}

// Resource converts v into a corpus resource tagged with the topic it was
// found under and its catalog categories.
func (v Volume) Resource(topic string) domres.Resource {
	tags := make([]string, 0, len(v.Categories)+1)
	tags = append(tags, topic)
	tags = append(tags, v.Categories...)
	return domres.Resource{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		URL:         v.URL,
		Tags:        domres.MergeTags(nil, tags),
	}
}
