package bot

import (
	"context"
	"log/slog"

	"ping_relay/internal/model"
	"ping_relay/internal/redirect"
)

const readyStatus = "Messing around with your notifications..."

type presenceUpdater interface {
	UpdateUser(userID, channelID uint64)
}

type messageEngine interface {
	HandleMessage(ctx context.Context, msg *model.Message) ([]redirect.Outcome, error)
}

// Relay passes guild messages to the redirection engine. Command messages
// only count as activity.
type Relay struct {
	engine   messageEngine
	presence presenceUpdater
	prefix   string
	log      *slog.Logger
}

// NewRelay creates a Relay.
func NewRelay(engine messageEngine, presence presenceUpdater, prefix string, log *slog.Logger) *Relay {
	return &Relay{engine: engine, presence: presence, prefix: prefix, log: log}
}

// HandleMessage implements MessageHandler.
func (r *Relay) HandleMessage(ctx context.Context, msg *model.Message) {
	if _, ok := ParseCommand(msg.Content, r.prefix); ok {
		r.presence.UpdateUser(msg.Author.ID, msg.ChannelID)
		return
	}

	outcomes, err := r.engine.HandleMessage(ctx, msg)
	if err != nil {
		r.log.Error("handle message", "message_id", msg.ID, "channel_id", msg.ChannelID, "error", err)
		return
	}
	if len(outcomes) > 0 {
		r.log.Debug("message relayed", "message_id", msg.ID,
			"candidates", len(outcomes), "delivered", redirect.Delivered(outcomes))
	}
}

// Presence records reactions and typing as user activity.
type Presence struct {
	tracker presenceUpdater
}

// NewPresence creates a Presence handler.
func NewPresence(tracker presenceUpdater) *Presence {
	return &Presence{tracker: tracker}
}

func (p *Presence) HandleReaction(_ context.Context, a model.Activity) {
	p.tracker.UpdateUser(a.UserID, a.ChannelID)
}

func (p *Presence) HandleTyping(_ context.Context, a model.Activity) {
	p.tracker.UpdateUser(a.UserID, a.ChannelID)
}

type statusUpdater interface {
	UpdateCustomStatus(state string) error
}

// Startup logs the guilds available after the gateway handshake and sets
// the bot's status.
type Startup struct {
	status statusUpdater
	log    *slog.Logger
}

// NewStartup creates a Startup handler.
func NewStartup(status statusUpdater, log *slog.Logger) *Startup {
	return &Startup{status: status, log: log}
}

// HandleReady implements ReadyHandler.
func (s *Startup) HandleReady(_ context.Context, e ReadyEvent) {
	for _, id := range e.GuildIDs {
		s.log.Debug("guild available", "guild_id", id)
	}
	s.log.Info("guilds ready", "count", len(e.GuildIDs), "user_id", e.User.ID)

	if err := s.status.UpdateCustomStatus(readyStatus); err != nil {
		s.log.Error("update status", "error", err)
	}
}
