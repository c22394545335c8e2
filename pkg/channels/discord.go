package channels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/plauderbot/plauderbot/pkg/bus"
	"github.com/plauderbot/plauderbot/pkg/config"
	"github.com/plauderbot/plauderbot/pkg/logger"
)

const sendTimeout = 10 * time.Second

type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	config  config.DiscordConfig
}

func NewDiscordChannel(cfg config.DiscordConfig, bus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	base := NewBaseChannel("discord", bus, cfg.AllowChannels)

	return &DiscordChannel{
		BaseChannel: base,
		session:     session,
		config:      cfg,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord bot")

	c.session.AddHandler(c.handleMessage)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}

	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("failed to get bot user: %w", err)
	}
	logger.InfoCF("discord", "Discord bot connected", map[string]any{
		"username": botUser.Username,
		"user_id":  botUser.ID,
	})

	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord bot")
	c.setRunning(false)

	if err := c.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session: %w", err)
	}

	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}

	channelID := msg.ChatID
	if channelID == "" {
		return fmt.Errorf("channel ID is empty")
	}

	if len([]rune(msg.Content)) == 0 {
		return nil
	}

	// Discord caps messages at 2000 characters; leave headroom for
	// natural split points.
	chunks := splitMessage(msg.Content, 1500)

	for i, chunk := range chunks {
		// Only the first chunk carries the reply reference.
		replyTo := ""
		if i == 0 {
			replyTo = msg.ReplyToID
		}
		if err := c.sendChunk(ctx, channelID, chunk, replyTo); err != nil {
			return err
		}
	}

	return nil
}

// splitMessage splits long messages into chunks at natural
// boundaries (newlines, spaces).
func splitMessage(content string, limit int) []string {
	var messages []string

	for len(content) > 0 {
		if len(content) <= limit {
			messages = append(messages, content)
			break
		}

		msgEnd := findLastNewline(content[:limit], 200)
		if msgEnd <= 0 {
			msgEnd = findLastSpace(content[:limit], 100)
		}
		if msgEnd <= 0 {
			msgEnd = limit
		}

		messages = append(messages, content[:msgEnd])
		content = strings.TrimSpace(content[msgEnd:])
	}

	return messages
}

// findLastNewline finds the last newline character within the last N characters
// Returns the position of the newline or -1 if not found
func findLastNewline(s string, searchWindow int) int {
	searchStart := len(s) - searchWindow
	if searchStart < 0 {
		searchStart = 0
	}
	for i := len(s) - 1; i >= searchStart; i-- {
		if s[i] == '\n' {
			return i
		}
	}
	return -1
}

// findLastSpace finds the last space character within the last N characters
// Returns the position of the space or -1 if not found
func findLastSpace(s string, searchWindow int) int {
	searchStart := len(s) - searchWindow
	if searchStart < 0 {
		searchStart = 0
	}
	for i := len(s) - 1; i >= searchStart; i-- {
		if s[i] == ' ' || s[i] == '\t' {
			return i
		}
	}
	return -1
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content, replyToID string) error {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		var err error
		if replyToID != "" {
			_, err = c.session.ChannelMessageSendReply(channelID, content, &discordgo.MessageReference{
				MessageID: replyToID,
				ChannelID: channelID,
			})
		} else {
			_, err = c.session.ChannelMessageSend(channelID, content)
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send message timeout: %w", sendCtx.Err())
	}
}

func (c *DiscordChannel) sendTyping(channelID string) {
	if channelID == "" || c.session == nil {
		return
	}
	if err := c.session.ChannelTyping(channelID); err != nil {
		logger.ErrorCF("discord", "Failed to send typing indicator", map[string]any{
			"error": err.Error(),
		})
	}
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil {
		return
	}

	// Never learn from bots, ourselves included.
	if m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}

	if !c.IsAllowed(m.ChannelID) {
		logger.DebugCF("discord", "Message outside allowed channels", map[string]any{
			"channel_id": m.ChannelID,
		})
		return
	}

	if strings.TrimSpace(m.Content) == "" {
		return
	}

	isMention := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMention = true
			break
		}
	}

	replyToID := ""
	if m.MessageReference != nil {
		replyToID = m.MessageReference.MessageID
	}

	// A mention is going to be answered; let the channel show it.
	if isMention {
		c.sendTyping(m.ChannelID)
	}

	logger.DebugCF("discord", "Received message", map[string]any{
		"sender":     m.Author.Username,
		"channel_id": m.ChannelID,
		"mention":    isMention,
	})

	c.PublishInbound(bus.InboundMessage{
		MessageID:   m.ID,
		ChatID:      m.ChannelID,
		SenderID:    m.Author.ID,
		SenderName:  m.Author.Username,
		Content:     m.Content,
		ReplyToID:   replyToID,
		TimestampMS: m.Timestamp.UnixMilli(),
		IsMention:   isMention,
	})
}
