package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/chris/dayplan/internal/agent"
	"github.com/chris/dayplan/internal/db"
	"github.com/chris/dayplan/internal/logger"
	"github.com/chris/dayplan/internal/scenario"
)

type Bot struct {
	session  *discordgo.Session
	planner  *agent.Planner
	db       *db.DB
	scenario *scenario.Scenario
	chats    *chatStore
}

func NewBot(token string, planner *agent.Planner, database *db.DB, sc *scenario.Scenario) (*Bot, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}

	bot := &Bot{
		session:  s,
		planner:  planner,
		db:       database,
		scenario: sc,
		chats:    newChatStore(planner.MaxContextTokens()),
	}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	logger.Info("discord bot connected", "user", s.State.User.Username)
	return bot, nil
}

// SendDM delivers content to a user's direct-message channel, split to fit
// Discord's message limit.
func (b *Bot) SendDM(userID, content string) error {
	ch, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("opening DM channel: %w", err)
	}
	for _, chunk := range SplitMessage(content, MaxMessageLen) {
		if _, err := b.session.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("sending DM: %w", err)
		}
	}
	return nil
}

func (b *Bot) Close() {
	b.session.Close()
}
