package model

// Candidate is a normalized job posting treated as a candidate lead.
type Candidate struct {
	Title    string   `json:"title"`
	Company  string   `json:"company"`
	Location string   `json:"location"`
	Link     string   `json:"link"`
	PostedAt string   `json:"postedAt,omitempty"`
	Skills   []string `json:"skills"`
}

// CandidateSearch holds the inbound search parameters for candidate
// discovery.
type CandidateSearch struct {
	Keywords           string   `json:"keywords"`
	Location           string   `json:"location"`
	Skills             []string `json:"skills"`
	ExperienceYearsMin int      `json:"experienceYearsMin"`
	Limit              int      `json:"limit"`
}
