package discord

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/llm"
	"github.com/chris/dayplan/internal/logger"
)

// MaxMessageLen is Discord's per-message character limit.
const MaxMessageLen = 2000

const errorReply = "出了点问题，请稍后再试。"

type command int

const (
	cmdChat command = iota
	cmdPlan
	cmdReset
)

var commandWords = map[string]command{
	"plan":  cmdPlan,
	"规划":    cmdPlan,
	"reset": cmdReset,
	"清空":    cmdReset,
}

// parseCommand splits a leading command word from the message. Anything else
// is a chat message.
func parseCommand(content string) (command, string) {
	word, rest, _ := strings.Cut(content, " ")
	if cmd, ok := commandWords[strings.ToLower(word)]; ok {
		return cmd, strings.TrimSpace(rest)
	}
	return cmdChat, content
}

// chatStore keeps per-channel conversation history.
type chatStore struct {
	mu        sync.Mutex
	histories map[string][]llm.Message
	maxTokens int
}

func newChatStore(maxTokens int) *chatStore {
	return &chatStore{histories: make(map[string][]llm.Message), maxTokens: maxTokens}
}

func (c *chatStore) get(channelID string) []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.histories[channelID]
}

// put stores history capped to the planner's context budget.
func (c *chatStore) put(channelID string, history []llm.Message) {
	history = llm.TrimMessages(history, c.maxTokens)
	c.mu.Lock()
	c.histories[channelID] = history
	c.mu.Unlock()
}

func (c *chatStore) reset(channelID string) {
	c.mu.Lock()
	delete(c.histories, channelID)
	c.mu.Unlock()
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}

	// Only respond to DMs or when mentioned
	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}
	if !isDM && !isMentioned {
		return
	}

	if isDM {
		if err := b.db.SetNote(db.NoteDiscordUserID, m.Author.ID); err != nil {
			logger.Warn("storing discord user", "err", err)
		}
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	if content == "" {
		return
	}

	s.ChannelTyping(m.ChannelID)

	reply := b.handle(context.Background(), m.ChannelID, content, time.Now())
	for _, chunk := range SplitMessage(reply, MaxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			logger.Error("sending reply", "channel", m.ChannelID, "err", err)
			return
		}
	}
}

// handle runs one message and returns the text to post back.
func (b *Bot) handle(ctx context.Context, channelID, content string, now time.Time) string {
	cmd, arg := parseCommand(content)
	switch cmd {
	case cmdReset:
		b.chats.reset(channelID)
		return "🧹 对话记录已清空。"

	case cmdPlan:
		day, instruction := agent.ScheduledInstruction(b.db, b.planner.UserID(), b.scenario, now)
		if arg != "" {
			instruction = arg
		}
		round, err := b.planner.RunDay(ctx, day, instruction, now.Format(agent.DateFormat))
		if err != nil {
			logger.Error("planning from discord", "err", err)
			return errorReply
		}
		return agent.FormatRound(round)

	default:
		reply, history, err := b.planner.Chat(ctx, b.chats.get(channelID), arg)
		if err != nil {
			logger.Error("chat from discord", "err", err)
			return errorReply
		}
		b.chats.put(channelID, history)
		if reply.Summary != "" {
			return reply.Content + "\n\n🧠 记忆摘要：\n" + reply.Summary
		}
		return reply.Content
	}
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

// SplitMessage cuts s into chunks of at most maxLen characters, preferring to
// break after a newline. Multi-byte characters are never split.
func SplitMessage(s string, maxLen int) []string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(runes) > 0 {
		end := maxLen
		if end > len(runes) {
			end = len(runes)
		}
		// Try to split at a newline
		if end < len(runes) {
			for i := end - 1; i > 0; i-- {
				if runes[i] == '\n' {
					end = i + 1
					break
				}
			}
		}
		chunks = append(chunks, string(runes[:end]))
		runes = runes[end:]
	}
	return chunks
}
