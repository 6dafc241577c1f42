package config

// Chrome client hints sent alongside the azuretls Chrome fingerprint.
// Keep these in sync with the fingerprint version azuretls emulates.
const (
	ChromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	ChromeSecChUa = `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`
)
