package model

// Tweet is the normalized tweet shape returned by every twitter
// endpoint, regardless of which upstream response schema it came from.
type Tweet struct {
	ID             string `json:"id"`
	UserID         string `json:"userId"`
	Username       string `json:"username"`
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
	Timestamp      int64  `json:"timestamp"`
	PermanentURL   string `json:"permanentUrl"`
	QuoteCount     int    `json:"quoteCount"`
	ReplyCount     int    `json:"replyCount"`
	RetweetCount   int    `json:"retweetCount"`
}

// SearchMode selects the result tab of a tweet search.
type SearchMode string

const (
	SearchLatest SearchMode = "Latest"
	SearchTop    SearchMode = "Top"
	SearchPeople SearchMode = "People"
	SearchPhotos SearchMode = "Photos"
	SearchVideos SearchMode = "Videos"
)
