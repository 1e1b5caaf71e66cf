package bot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/bwmarrin/discordgo"

	"ping_relay/internal/model"
	"ping_relay/internal/storage"
)

const (
	replyFailed       = "Something went wrong, please try again later."
	replyNoPermission = "You need the Manage Messages permission to do that."
)

type messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type guildState interface {
	Channel(channelID string) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string) (int64, error)
}

// Commands answers the rule-management text commands.
type Commands struct {
	prefix string
	store  storage.Storage
	api    messenger
	state  guildState
	log    *slog.Logger
}

// NewCommands creates the command handler for messages starting with prefix.
func NewCommands(prefix string, store storage.Storage, api messenger, state guildState, log *slog.Logger) *Commands {
	return &Commands{
		prefix: prefix,
		store:  store,
		api:    api,
		state:  state,
		log:    log,
	}
}

// HandleMessage runs the command in msg, if any, and replies to it.
func (c *Commands) HandleMessage(ctx context.Context, msg *model.Message) {
	if msg.Author.Bot {
		return
	}
	cmd, ok := ParseCommand(msg.Content, c.prefix)
	if !ok {
		return
	}

	c.log.Debug("command", "name", cmd.Name, "sub", cmd.Sub, "args", cmd.Args,
		"guild_id", msg.GuildID, "user_id", msg.Author.ID)

	var (
		reply string
		err   error
	)
	switch cmd.Name {
	case "help":
		reply = FormatHelp(c.prefix)
	case "redirect":
		reply, err = c.handleRedirect(ctx, msg, cmd)
	case "ignore":
		reply, err = c.handleIgnore(ctx, msg, cmd)
	case "block":
		reply, err = c.handleBlock(ctx, msg, cmd)
	default:
		reply = "Unknown command: " + cmd.Name
	}
	if err != nil {
		c.log.Error("run command", "name", cmd.Name, "sub", cmd.Sub, "user_id", msg.Author.ID, "error", err)
		reply = replyFailed
	}

	c.reply(ctx, msg, reply)
}

func (c *Commands) handleRedirect(ctx context.Context, msg *model.Message, cmd Command) (string, error) {
	switch cmd.Sub {
	case "list":
		ids, err := c.store.ListRedirects(ctx, msg.GuildID)
		if err != nil {
			return "", err
		}
		return FormatRedirectList(ids), nil
	case "add", "remove":
	default:
		return c.usage("redirect add|remove|list"), nil
	}

	allowed, err := c.canManageMessages(msg)
	if err != nil {
		return "", err
	}
	if !allowed {
		return replyNoPermission, nil
	}

	channelID, ok := ParseChannelArg(cmd.Args)
	if !ok || channelID == model.AllChannels {
		return c.usage("redirect " + cmd.Sub + " <#channel>"), nil
	}
	channel := model.ChannelMention(channelID)

	if cmd.Sub == "add" {
		if !c.inGuild(channelID, msg.GuildID) {
			return fmt.Sprintf("I can't find %s in this server.", channel), nil
		}
		exists, err := c.store.IsRedirect(ctx, channelID)
		if err != nil {
			return "", err
		}
		if exists {
			return fmt.Sprintf("Already redirecting notifications to %s.", channel), nil
		}
		if err := c.store.AddRedirect(ctx, msg.GuildID, channelID); err != nil {
			return "", err
		}
		c.log.Info("redirect added", "rule", model.RedirectRule{GuildID: msg.GuildID, ChannelID: channelID},
			"by", msg.Author.ID)
		return fmt.Sprintf("Added %s to the redirect list.", channel), nil
	}

	ids, err := c.store.ListRedirects(ctx, msg.GuildID)
	if err != nil {
		return "", err
	}
	if !slices.Contains(ids, channelID) {
		return fmt.Sprintf("Not redirecting notifications to %s.", channel), nil
	}
	if err := c.store.RemoveRedirect(ctx, msg.GuildID, channelID); err != nil {
		return "", err
	}
	c.log.Info("redirect removed", "rule", model.RedirectRule{GuildID: msg.GuildID, ChannelID: channelID},
		"by", msg.Author.ID)
	return fmt.Sprintf("Removed %s from the redirect list.", channel), nil
}

func (c *Commands) handleIgnore(ctx context.Context, msg *model.Message, cmd Command) (string, error) {
	userID, guildID := msg.Author.ID, msg.GuildID

	switch cmd.Sub {
	case "list":
		ids, err := c.store.ListIgnoredChannels(ctx, userID, guildID)
		if err != nil {
			return "", err
		}
		return FormatIgnoreList(ids), nil
	case "add", "remove":
	default:
		return c.usage("ignore add|remove|list [#channel]"), nil
	}

	channelID, ok := ParseChannelArg(cmd.Args)
	if !ok {
		return c.usage("ignore " + cmd.Sub + " [#channel]"), nil
	}
	rule := model.IgnoreRule{UserID: userID, GuildID: guildID, ChannelID: channelID}
	global := rule.IsGlobal()
	channel := model.ChannelMention(channelID)

	exists, err := c.store.HasIgnore(ctx, rule.UserID, rule.GuildID, rule.ChannelID)
	if err != nil {
		return "", err
	}

	if cmd.Sub == "add" {
		switch {
		case exists && global:
			return "You're already on the global ignore list.", nil
		case exists:
			return fmt.Sprintf("You're already ignoring %s.", channel), nil
		}
		if err := c.store.AddIgnore(ctx, rule.UserID, rule.GuildID, rule.ChannelID); err != nil {
			return "", err
		}
		c.log.Debug("ignore added", "rule", rule)
		if global {
			return "I've added you to the global ignore list. You will no longer receive notifications from me.", nil
		}
		return fmt.Sprintf("You will no longer receive a DM when you're pinged in %s.", channel), nil
	}

	switch {
	case !exists && global:
		return "You're not on the global ignore list.", nil
	case !exists:
		return fmt.Sprintf("You're not ignoring %s.", channel), nil
	}
	if err := c.store.RemoveIgnore(ctx, rule.UserID, rule.GuildID, rule.ChannelID); err != nil {
		return "", err
	}
	c.log.Debug("ignore removed", "rule", rule)
	if global {
		return "I've removed you from the global ignore list. You will once again receive notifications from me.", nil
	}
	return fmt.Sprintf("You will now be notified when you're pinged in %s.", channel), nil
}

func (c *Commands) handleBlock(ctx context.Context, msg *model.Message, cmd Command) (string, error) {
	userID, guildID := msg.Author.ID, msg.GuildID

	switch cmd.Sub {
	case "list":
		ids, err := c.store.ListBlocked(ctx, userID, guildID)
		if err != nil {
			return "", err
		}
		return FormatBlockList(ids), nil
	case "add", "remove":
	default:
		return c.usage("block add|remove|list <@user>"), nil
	}

	blockedID, ok := ParseUserArg(cmd.Args)
	if !ok {
		return c.usage("block " + cmd.Sub + " <@user>"), nil
	}
	rule := model.BlockRule{UserID: userID, GuildID: guildID, BlockedUserID: blockedID}
	user := model.UserMention(blockedID)

	exists, err := c.store.IsBlocked(ctx, rule.UserID, rule.GuildID, rule.BlockedUserID)
	if err != nil {
		return "", err
	}

	if cmd.Sub == "add" {
		if exists {
			return fmt.Sprintf("You've already blocked %s.", user), nil
		}
		if err := c.store.AddBlock(ctx, rule.UserID, rule.GuildID, rule.BlockedUserID); err != nil {
			return "", err
		}
		c.log.Debug("block added", "rule", rule)
		return fmt.Sprintf("You will no longer receive a DM when you're pinged by %s.", user), nil
	}

	if !exists {
		return fmt.Sprintf("You don't have %s blocked.", user), nil
	}
	if err := c.store.RemoveBlock(ctx, rule.UserID, rule.GuildID, rule.BlockedUserID); err != nil {
		return "", err
	}
	c.log.Debug("block removed", "rule", rule)
	return fmt.Sprintf("%s can now ping you again.", user), nil
}

func (c *Commands) canManageMessages(msg *model.Message) (bool, error) {
	perms, err := c.state.UserChannelPermissions(formatID(msg.Author.ID), formatID(msg.ChannelID))
	if err != nil {
		return false, fmt.Errorf("get channel permissions: %w", err)
	}
	return perms&discordgo.PermissionManageMessages != 0, nil
}

func (c *Commands) inGuild(channelID, guildID uint64) bool {
	ch, err := c.state.Channel(formatID(channelID))
	if err != nil {
		c.log.Debug("look up channel", "channel_id", channelID, "error", err)
		return false
	}
	return ch.GuildID == formatID(guildID)
}

func (c *Commands) usage(syntax string) string {
	return "Usage: " + c.prefix + syntax
}

func (c *Commands) reply(ctx context.Context, msg *model.Message, text string) {
	data := &discordgo.MessageSend{
		Content: text,
		Reference: &discordgo.MessageReference{
			MessageID: formatID(msg.ID),
			ChannelID: formatID(msg.ChannelID),
			GuildID:   formatID(msg.GuildID),
		},
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if _, err := c.api.ChannelMessageSendComplex(formatID(msg.ChannelID), data, discordgo.WithContext(ctx)); err != nil {
		c.log.Error("send reply", "channel_id", msg.ChannelID, "error", err)
	}
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
