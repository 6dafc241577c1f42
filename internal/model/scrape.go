package model

// ScrapeResult is the per-URL record of a batch scrape. Failures are
// captured in Error instead of aborting the batch; Summary fields stay
// zero-valued when summarization was skipped or degraded.
type ScrapeResult struct {
	URL             string   `json:"url"`
	Status          int      `json:"status"`
	Error           string   `json:"error,omitempty"`
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	TextPreview     string   `json:"textPreview"`
	FullText        string   `json:"fullText"`
	Summary         string   `json:"summary"`
	IsQueryRelated  bool     `json:"isQueryRelated"`
	RelatedURLs     []string `json:"relatedURLs"`
}
