package domain

// Place is the reverse-geocoded description of a coordinate.
type Place struct {
	Place    string
	Locality string
	State    string
	// Wikidata is the knowledge-base id of the locality, empty when unknown.
	Wikidata string
}

// Image is a thumbnail picked for a place.
type Image struct {
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ImageQuery selects images by knowledge-base id and/or article title.
type ImageQuery struct {
	KnowledgeBaseID string
	ArticleTitle    string
}
