// Package bot connects the notification pipeline and the rule commands to a
// Discord gateway session.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"ping_relay/internal/activity"
	"ping_relay/internal/config"
	"ping_relay/internal/delivery"
	"ping_relay/internal/redirect"
	"ping_relay/internal/storage"
)

const intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsGuildMessageTyping

// Bot owns the gateway session and the handlers attached to it.
type Bot struct {
	session  *discordgo.Session
	registry *Registry
	log      *slog.Logger
}

// New creates a Bot for the configured token. Nothing connects until Run.
func New(cfg *config.Config, store storage.Storage, tracker *activity.Tracker, log *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = intents

	engine := redirect.New(
		store,
		tracker,
		NewMemberResolver(session.State, session),
		delivery.New(session, cfg.DMRatePerSec),
		cfg.MaxConcurrentCandidates,
		log.With("component", "redirect"),
	)

	registry := NewRegistry(cfg.IsGuildAllowed, log)
	registry.OnMessage(NewRelay(engine, tracker, cfg.CommandPrefix, log))
	registry.OnMessage(NewCommands(cfg.CommandPrefix, store, session, sessionState{session}, log.With("component", "commands")))
	presence := NewPresence(tracker)
	registry.OnReaction(presence)
	registry.OnTyping(presence)
	registry.OnReady(NewStartup(session, log))

	return &Bot{session: session, registry: registry, log: log}, nil
}

// Run opens the gateway connection and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.registry.Attach(ctx, b.session)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.log.Info("discord session opened")

	<-ctx.Done()

	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// sessionState answers channel and permission queries from the gateway
// cache, asking the REST API when the cache has no answer.
type sessionState struct {
	s *discordgo.Session
}

func (st sessionState) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := st.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return st.s.Channel(channelID)
}

func (st sessionState) UserChannelPermissions(userID, channelID string) (int64, error) {
	if perms, err := st.s.State.UserChannelPermissions(userID, channelID); err == nil {
		return perms, nil
	}
	return st.s.UserChannelPermissions(userID, channelID)
}
