package twitter

import (
	"encoding/json"
	"fmt"
	"time"

	"scout/internal/model"
	"scout/pkg/logger"
)

// FlattenTimeline digs tweet-shaped objects out of a GraphQL timeline
// payload. The web API wraps tweets in several layers (instructions,
// entries, modules) that differ between the search, home and user
// timelines, so the walk accepts every shape we have seen and falls back
// to a deep scan for tweet_results nodes.
func FlattenTimeline(payload any) []map[string]any {
	if raw, ok := payload.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
			logger.Warn("timeline payload is not json", "error", err)
			return nil
		}
		payload = decoded
	}

	items, ok := payload.([]any)
	if !ok {
		if m, isMap := payload.(map[string]any); isMap {
			return extractFromInstructions(m)
		}
		return nil
	}

	var flattened []map[string]any
	for _, item := range items {
		switch v := item.(type) {
		case map[string]any:
			if entryID, _ := v["entryId"].(string); len(entryID) > 6 && entryID[:6] == "tweet-" {
				if extracted := extractFromEntry(v); len(extracted) > 0 {
					flattened = append(flattened, extracted...)
					continue
				}
			}
			if tweets, isList := v["tweets"].([]any); isList {
				flattened = append(flattened, onlyMaps(tweets)...)
				continue
			}
			if hasAnyKey(v, "entryId", "entries", "data", "instructions") {
				flattened = append(flattened, extractFromInstructions(v)...)
				continue
			}
			flattened = append(flattened, v)
		case []any:
			for _, sub := range v {
				subMap, isMap := sub.(map[string]any)
				if !isMap {
					continue
				}
				if tweets, isList := subMap["tweets"].([]any); isList {
					flattened = append(flattened, onlyMaps(tweets)...)
					continue
				}
				if extracted := extractFromInstructions(subMap); len(extracted) > 0 {
					flattened = append(flattened, extracted...)
					continue
				}
				flattened = append(flattened, subMap)
			}
		}
	}
	return flattened
}

// MapTweet converts one flattened tweet object into the API model. It
// reports false for entries that do not look like tweets (cursors,
// tombstones, ads).
func MapTweet(data map[string]any) (model.Tweet, bool) {
	if wrapped, ok := data["tweet_results"].(map[string]any); ok {
		if result, ok := wrapped["result"].(map[string]any); ok {
			data = result
		}
	}

	id := firstString(data, "rest_id", "id", "id_str")
	if id == "" {
		return model.Tweet{}, false
	}

	tweet := model.Tweet{
		ID:        id,
		UserID:    "0",
		Username:  "unknown",
		Timestamp: time.Now().Unix(),
	}

	if legacy, ok := data["legacy"].(map[string]any); ok {
		tweet.Text = firstString(legacy, "full_text", "text")
		if tweet.Text == "" {
			tweet.Text = noteTweetText(data)
		}
		tweet.ConversationID = stringOr(legacy, "conversation_id_str", "0")
		tweet.QuoteCount = intField(legacy, "quote_count")
		tweet.ReplyCount = intField(legacy, "reply_count")
		tweet.RetweetCount = intField(legacy, "retweet_count")

		if user := coreUser(data); user != nil {
			tweet.UserID = stringOr(user, "rest_id", "0")
			if userLegacy, ok := user["legacy"].(map[string]any); ok {
				tweet.Username = stringOr(userLegacy, "screen_name", "unknown")
			}
		}
	} else {
		tweet.Text = stringOr(data, "text", "")
		if tweet.Text == "" {
			tweet.Text = noteTweetText(data)
		}
		tweet.Username = firstStringOr(data, "unknown", "username", "user_screen_name")
		tweet.UserID = stringOr(data, "user_id", "0")
		tweet.ConversationID = stringOr(data, "conversation_id", "0")
		tweet.QuoteCount = intField(data, "quote_count")
		tweet.ReplyCount = intField(data, "reply_count")
		tweet.RetweetCount = intField(data, "retweet_count")
	}

	tweet.PermanentURL = fmt.Sprintf("https://x.com/%s/status/%s", tweet.Username, tweet.ID)
	return tweet, true
}

// MapTweets maps a flattened list, dropping non-tweet entries.
func MapTweets(items []map[string]any) []model.Tweet {
	tweets := make([]model.Tweet, 0, len(items))
	for _, item := range items {
		if tweet, ok := MapTweet(item); ok {
			tweets = append(tweets, tweet)
		}
	}
	return tweets
}

// extractFromInstructions handles the instruction wrappers used by the
// home, search and user timelines.
func extractFromInstructions(item map[string]any) []map[string]any {
	if data, ok := item["data"].(map[string]any); ok {
		if home, ok := data["home"].(map[string]any); ok {
			if urt, ok := home["home_timeline_urt"].(map[string]any); ok {
				return collectInstructionEntries(urt["instructions"])
			}
		}
		if search, ok := data["search_by_query"].(map[string]any); ok {
			return collectInstructionEntries(search["instructions"])
		}
		return extractDeep(data)
	}
	if instructions, ok := item["instructions"].([]any); ok {
		return collectInstructionEntries(instructions)
	}
	if entries, ok := item["entries"].([]any); ok {
		return collectEntries(entries)
	}
	if _, hasEntry := item["entryId"]; hasEntry {
		if _, hasContent := item["content"]; hasContent {
			return extractFromEntry(item)
		}
	}
	return nil
}

func collectInstructionEntries(instructions any) []map[string]any {
	list, ok := instructions.([]any)
	if !ok {
		return nil
	}
	var found []map[string]any
	for _, inst := range list {
		instMap, ok := inst.(map[string]any)
		if !ok {
			continue
		}
		if entries, ok := instMap["entries"].([]any); ok {
			found = append(found, collectEntries(entries)...)
		}
	}
	return found
}

func collectEntries(entries []any) []map[string]any {
	var found []map[string]any
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		found = append(found, extractFromEntry(entry)...)
	}
	return found
}

// extractFromEntry pulls tweet objects from a single timeline entry.
// Cursors and other non-item entries yield nothing.
func extractFromEntry(entry map[string]any) []map[string]any {
	content, ok := entry["content"].(map[string]any)
	if !ok {
		return nil
	}

	contentType := firstString(content, "entryType", "__typename")
	switch contentType {
	case "TimelineTimelineItem", "TimelineTimelineModule", "VerticalConversation":
	default:
		return nil
	}

	if itemContent, ok := content["itemContent"].(map[string]any); ok {
		itemType := firstString(itemContent, "itemType", "__typename")
		if itemType == "TimelineTweet" {
			if wrapped, ok := itemContent["tweet_results"].(map[string]any); ok {
				if result, ok := wrapped["result"].(map[string]any); ok {
					return []map[string]any{result}
				}
			}
		}
	}

	return extractDeep(content)
}

// extractDeep recursively scans for tweet_results nodes. It is the
// fallback when the itemContent path is absent, as in conversation
// modules.
func extractDeep(node any) []map[string]any {
	var found []map[string]any
	switch v := node.(type) {
	case map[string]any:
		if wrapped, ok := v["tweet_results"].(map[string]any); ok {
			if result, ok := wrapped["result"].(map[string]any); ok {
				found = append(found, result)
			}
		}
		for _, child := range v {
			found = append(found, extractDeep(child)...)
		}
	case []any:
		for _, child := range v {
			found = append(found, extractDeep(child)...)
		}
	}
	return found
}

// noteTweetText reads the long-form text stored under note_tweet for
// tweets over the classic length limit.
func noteTweetText(data map[string]any) string {
	note, ok := data["note_tweet"].(map[string]any)
	if !ok {
		return ""
	}
	results, ok := note["note_tweet_results"].(map[string]any)
	if !ok {
		return ""
	}
	result, ok := results["result"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := result["text"].(string)
	return text
}

func coreUser(data map[string]any) map[string]any {
	core, ok := data["core"].(map[string]any)
	if !ok {
		return nil
	}
	results, ok := core["user_results"].(map[string]any)
	if !ok {
		return nil
	}
	user, ok := results["result"].(map[string]any)
	if !ok {
		return nil
	}
	return user
}

func hasAnyKey(m map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func onlyMaps(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func firstStringOr(m map[string]any, fallback string, keys ...string) string {
	if s := firstString(m, keys...); s != "" {
		return s
	}
	return fallback
}

func stringOr(m map[string]any, key, fallback string) string {
	if s := firstString(m, key); s != "" {
		return s
	}
	return fallback
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	}
	return 0
}
