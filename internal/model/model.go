// Package model defines the domain types shared by the rule store, the
// presence tracker and the redirection engine.
package model

import "fmt"

// AllChannels is the channel ID stored on an ignore rule that covers every
// channel of a guild. Discord never hands out snowflake 0.
const AllChannels uint64 = 0

// RedirectRule marks a channel whose mentions are relayed as direct messages.
type RedirectRule struct {
	GuildID   uint64
	ChannelID uint64
}

// IgnoreRule opts a user out of notifications for one channel, or for the
// whole guild when ChannelID is AllChannels.
type IgnoreRule struct {
	UserID    uint64
	GuildID   uint64
	ChannelID uint64
}

// IsGlobal reports whether the rule covers every channel of the guild.
func (r IgnoreRule) IsGlobal() bool {
	return r.ChannelID == AllChannels
}

// BlockRule stops UserID from being notified about pings sent by BlockedUserID.
type BlockRule struct {
	UserID        uint64
	GuildID       uint64
	BlockedUserID uint64
}

// User is the part of a platform user the engine cares about.
type User struct {
	ID  uint64
	Bot bool
}

// Message is an inbound guild message as seen by the engine.
type Message struct {
	ID        uint64
	GuildID   uint64
	ChannelID uint64
	Author    User
	Content   string

	// Mentions holds the users the platform resolved from Content.
	// MentionsResolved is false when the platform did not supply them, in
	// which case they are extracted from Content.
	Mentions         []User
	MentionsResolved bool

	// Parent is the message this one replies to, if any.
	Parent *Message

	SuppressNotifications bool
}

// JumpLink returns the URL that opens the message in a Discord client.
func (m *Message) JumpLink() string {
	return fmt.Sprintf("https://discord.com/channels/%d/%d/%d", m.GuildID, m.ChannelID, m.ID)
}

// Activity is a presence signal (reaction or typing) from a user in a channel.
type Activity struct {
	UserID    uint64
	GuildID   uint64
	ChannelID uint64
}

// UserMention renders the chat markup that mentions a user.
func UserMention(id uint64) string {
	return fmt.Sprintf("<@%d>", id)
}

// ChannelMention renders the chat markup that links a channel.
func ChannelMention(id uint64) string {
	return fmt.Sprintf("<#%d>", id)
}
