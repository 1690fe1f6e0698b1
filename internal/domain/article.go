package domain

// SegmentType tags the spoken role of a segment.
type SegmentType string

const (
	SegmentWelcome SegmentType = "welcome"
	SegmentHeading SegmentType = "heading"
	SegmentContent SegmentType = "content"
)

// Segment is one atomic unit of speakable text.
type Segment struct {
	Type SegmentType `json:"type"`
	Text string      `json:"text"`
}

// RawArticle is an encyclopedia page as returned by the article source.
type RawArticle struct {
	Extract string
	Title   string
	PageURL string
	// Missing reports that the source had no page for the query.
	Missing bool
}

// Article is the speakable rendition of a RawArticle.
type Article struct {
	LocationText string    `json:"locationText"`
	Sections     []Segment `json:"sections"`
	Text         string    `json:"text"`
	PageURL      string    `json:"pageUrl"`
}
