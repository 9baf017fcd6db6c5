package llm

import "unicode/utf8"

// charsPerToken is the average number of characters per token for English
// text. CJK text runs closer to one token per character, so runes outside
// ASCII are counted individually.
const charsPerToken = 4

// EstimateTokens returns a rough token count for a string.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	ascii, wide := 0, 0
	for _, r := range s {
		if r < utf8.RuneSelf {
			ascii++
		} else {
			wide++
		}
	}
	return (ascii+charsPerToken-1)/charsPerToken + wide // round up
}

// EstimateMessageTokens returns the estimated token count for a single message,
// including per-message overhead (role, framing).
func EstimateMessageTokens(m Message) int {
	return 4 + EstimateTokens(m.Content)
}

// EstimateMessagesTokens returns the total estimated tokens for a slice of messages.
func EstimateMessagesTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateMessageTokens(m)
	}
	return total
}
