package bot

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/askracha/askracha/internal/answer"
	"github.com/askracha/askracha/internal/logging"
)

const handleTimeout = 45 * time.Second

// Asker forwards an allowed question to the web API.
type Asker interface {
	Ask(ctx context.Context, question string) (*answer.Answer, error)
}

// Bot wires the Discord session to the message gate. A question only
// reaches the answer pipeline after the gate allows it.
type Bot struct {
	session   *discordgo.Session
	gate      *Gate
	processor *Processor
	client    Asker
	logger    *logging.Logger
}

func New(token string, gate *Gate, processor *Processor, client Asker, logger *logging.Logger) (*Bot, error) {
	if logger == nil {
		logger = logging.Default()
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session:   session,
		gate:      gate,
		processor: processor,
		client:    client,
		logger:    logger.Named("bot"),
	}
	session.AddHandler(b.handleMessageCreate)

	return b, nil
}

// Start opens the Discord gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return err
	}
	b.logger.Info("discord bot connected",
		logging.WithField("user", b.session.State.User.Username),
	)
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if !b.mentionsMe(m) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	question := b.processor.ExtractQuestion(m.Content)
	if question == "" {
		b.reply(m, "Ask me a question by mentioning me, e.g. `@AskRacha how do I get started?`")
		return
	}

	if b.processor.IsProfane(question) {
		b.reply(m, "Let's keep it friendly! Try rephrasing your question. 🙂")
		return
	}

	result := b.gate.CheckUser(ctx, m.Author.ID)
	if !result.Allowed {
		b.logger.Info("rate limited discord user",
			logging.WithField("discordUserId", m.Author.ID),
			logging.WithField("remainingSeconds", result.RemainingSeconds),
		)
		b.reply(m, CooldownMessage(result.RemainingSeconds, b.displayName(m)))
		return
	}

	ans, err := b.client.Ask(ctx, question)
	if err != nil {
		var rateLimited *answer.RateLimitedError
		if errors.As(err, &rateLimited) {
			// The web API denied after our gate allowed: a concurrent
			// request on the other platform won the window.
			b.reply(m, CrossPlatformNotice(rateLimited.RetryAfter))
			return
		}

		b.logger.Error("answer request failed", logging.WithField("error", err.Error()))
		b.reply(m, b.processor.FormatAnswer(nil))
		return
	}

	b.reply(m, b.processor.FormatAnswer(ans))
}

func (b *Bot) mentionsMe(m *discordgo.MessageCreate) bool {
	if b.session.State == nil || b.session.State.User == nil {
		return false
	}
	for _, user := range m.Mentions {
		if user.ID == b.session.State.User.ID {
			return true
		}
	}
	return false
}

func (b *Bot) displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	return m.Author.Username
}

func (b *Bot) reply(m *discordgo.MessageCreate, content string) {
	_, err := b.session.ChannelMessageSendReply(m.ChannelID, content, m.Reference())
	if err != nil {
		b.logger.Error("failed to send discord reply",
			logging.WithField("channelId", m.ChannelID),
			logging.WithField("error", err.Error()),
		)
	}
}
