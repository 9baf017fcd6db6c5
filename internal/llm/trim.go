package llm

// TrimMessages trims a message history to fit within a token budget.
//
// The budget should already account for the system prompt and a reserve for
// the model's output. This function only manages the message list itself.
//
// Strategy:
//  1. Group messages into exchanges (consecutive user messages plus the
//     assistant reply that answers them).
//  2. Always keep the most recent group (the active turn).
//  3. Drop the oldest groups first until the total fits within budget.
//
// An exchange is never split, so the history never starts with an orphaned reply.
func TrimMessages(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	groups := groupMessages(messages)

	total := 0
	for _, g := range groups {
		total += g.tokens
	}

	if total <= maxTokens {
		return messages
	}

	// Always keep the last group (active turn). Trim from the front.
	kept := total
	dropUntil := 0
	for dropUntil < len(groups)-1 && kept > maxTokens {
		kept -= groups[dropUntil].tokens
		dropUntil++
	}

	var trimmed []Message
	for _, g := range groups[dropUntil:] {
		trimmed = append(trimmed, g.messages...)
	}
	return trimmed
}

// messageGroup is a logical unit of conversation that must be kept or
// dropped as a whole.
type messageGroup struct {
	messages []Message
	tokens   int
}

// groupMessages splits a message slice into exchanges. A group closes after
// an assistant message; system messages stand alone.
func groupMessages(messages []Message) []messageGroup {
	var groups []messageGroup
	var cur messageGroup
	flush := func() {
		if len(cur.messages) > 0 {
			groups = append(groups, cur)
			cur = messageGroup{}
		}
	}
	for _, msg := range messages {
		if msg.Role == "system" {
			flush()
			groups = append(groups, messageGroup{messages: []Message{msg}, tokens: EstimateMessageTokens(msg)})
			continue
		}
		cur.messages = append(cur.messages, msg)
		cur.tokens += EstimateMessageTokens(msg)
		if msg.Role == "assistant" {
			flush()
		}
	}
	flush()
	return groups
}
