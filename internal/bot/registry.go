package bot

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"ping_relay/internal/model"
)

// MessageHandler handles a guild message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *model.Message)
}

// ReactionHandler handles a reaction added to a message.
type ReactionHandler interface {
	HandleReaction(ctx context.Context, a model.Activity)
}

// TypingHandler handles a typing indicator.
type TypingHandler interface {
	HandleTyping(ctx context.Context, a model.Activity)
}

// ReadyHandler handles the gateway ready event.
type ReadyHandler interface {
	HandleReady(ctx context.Context, r ReadyEvent)
}

// ReadyEvent is the part of the gateway ready payload the bot uses.
type ReadyEvent struct {
	User     model.User
	GuildIDs []uint64
}

// Registry maps each event kind to the handlers that receive it, in the
// order they were registered.
type Registry struct {
	messages  []MessageHandler
	reactions []ReactionHandler
	typing    []TypingHandler
	ready     []ReadyHandler
	allow     func(guildID uint64) bool
	log       *slog.Logger
}

// NewRegistry creates an empty Registry. Message, reaction and typing
// events from guilds rejected by allow are dropped; a nil allow accepts
// every guild.
func NewRegistry(allow func(guildID uint64) bool, log *slog.Logger) *Registry {
	if allow == nil {
		allow = func(uint64) bool { return true }
	}
	return &Registry{allow: allow, log: log}
}

// OnMessage registers a handler for guild messages.
func (r *Registry) OnMessage(h MessageHandler) { r.messages = append(r.messages, h) }
func (r *Registry) OnReaction(h ReactionHandler) { r.reactions = append(r.reactions, h) }
func (r *Registry) OnTyping(h TypingHandler) { r.typing = append(r.typing, h) }
func (r *Registry) OnReady(h ReadyHandler) { r.ready = append(r.ready, h) }

type eventSource interface {
	AddHandler(handler interface{}) func()
}

// Attach installs one gateway handler per event kind on s. Handlers run
// with ctx, so cancelling it aborts any in-flight presence waits.
func (r *Registry) Attach(ctx context.Context, s eventSource) {
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		r.dispatchMessage(ctx, m.Message)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageReactionAdd) {
		r.dispatchReaction(ctx, e)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.TypingStart) {
		r.dispatchTyping(ctx, e)
	})
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.Ready) {
		r.dispatchReady(ctx, e)
	})
}

func (r *Registry) dispatchMessage(ctx context.Context, m *discordgo.Message) {
	msg, ok := messageFromDiscord(m)
	if !ok {
		return
	}
	if msg.GuildID == 0 {
		r.log.Debug("ignore direct message", "message_id", msg.ID, "author_id", msg.Author.ID)
		return
	}
	if !r.allow(msg.GuildID) {
		return
	}
	for _, h := range r.messages {
		h.HandleMessage(ctx, msg)
	}
}

func (r *Registry) dispatchReaction(ctx context.Context, e *discordgo.MessageReactionAdd) {
	if e.MessageReaction == nil {
		return
	}
	a, ok := activityFromDiscord(e.UserID, e.GuildID, e.ChannelID)
	if !ok || !r.allow(a.GuildID) {
		return
	}
	for _, h := range r.reactions {
		h.HandleReaction(ctx, a)
	}
}

func (r *Registry) dispatchTyping(ctx context.Context, e *discordgo.TypingStart) {
	a, ok := activityFromDiscord(e.UserID, e.GuildID, e.ChannelID)
	if !ok || !r.allow(a.GuildID) {
		return
	}
	for _, h := range r.typing {
		h.HandleTyping(ctx, a)
	}
}

func (r *Registry) dispatchReady(ctx context.Context, e *discordgo.Ready) {
	ev := ReadyEvent{GuildIDs: make([]uint64, 0, len(e.Guilds))}
	if e.User != nil {
		ev.User, _ = userFromDiscord(e.User)
	}
	for _, g := range e.Guilds {
		if id, err := strconv.ParseUint(g.ID, 10, 64); err == nil {
			ev.GuildIDs = append(ev.GuildIDs, id)
		}
	}
	for _, h := range r.ready {
		h.HandleReady(ctx, ev)
	}
}

func messageFromDiscord(m *discordgo.Message) (*model.Message, bool) {
	if m == nil || m.Author == nil {
		return nil, false
	}
	author, ok := userFromDiscord(m.Author)
	if !ok {
		return nil, false
	}

	msg := &model.Message{
		ID:                    parseID(m.ID),
		GuildID:               parseID(m.GuildID),
		ChannelID:             parseID(m.ChannelID),
		Author:                author,
		Content:               m.Content,
		MentionsResolved:      m.Mentions != nil,
		SuppressNotifications: m.Flags&discordgo.MessageFlagsSuppressNotifications != 0,
	}
	for _, u := range m.Mentions {
		if mu, ok := userFromDiscord(u); ok {
			msg.Mentions = append(msg.Mentions, mu)
		}
	}
	if parent, ok := messageFromDiscord(m.ReferencedMessage); ok {
		msg.Parent = parent
	}
	return msg, true
}

func activityFromDiscord(userID, guildID, channelID string) (model.Activity, bool) {
	a := model.Activity{UserID: parseID(userID), GuildID: parseID(guildID), ChannelID: parseID(channelID)}
	return a, a.UserID != 0 && a.ChannelID != 0
}

func userFromDiscord(u *discordgo.User) (model.User, bool) {
	if u == nil {
		return model.User{}, false
	}
	id := parseID(u.ID)
	return model.User{ID: id, Bot: u.Bot}, id != 0
}

// parseID converts a snowflake string; anything unparsable maps to 0.
func parseID(s string) uint64 {
	id, _ := strconv.ParseUint(s, 10, 64)
	return id
}
