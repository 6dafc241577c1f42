package handler

// Export for testing
type ErrorResponse = errorResponse
type ScrapeResponse = scrapeResponse
type TweetListResponse = tweetListResponse
type TweetWriteResponse = tweetWriteResponse
type EmailSentResponse = emailSentResponse

var WriteServiceError = writeServiceError
