package bot

import (
	"fmt"
	"slices"
	"strings"

	"ping_relay/internal/model"
)

// FormatRedirectList describes the redirect channels of a guild.
func FormatRedirectList(channelIDs []uint64) string {
	switch len(channelIDs) {
	case 0:
		return "No channels are being redirected."
	case 1:
		return fmt.Sprintf("%s is being redirected.", model.ChannelMention(channelIDs[0]))
	case 2:
		return fmt.Sprintf("Both %s and %s are being redirected.",
			model.ChannelMention(channelIDs[0]), model.ChannelMention(channelIDs[1]))
	}
	return bulletList("The following channels are being redirected:", channelIDs, model.ChannelMention)
}

// FormatIgnoreList describes a user's ignore rules in a guild.
func FormatIgnoreList(channelIDs []uint64) string {
	if slices.Contains(channelIDs, model.AllChannels) {
		return "You're ignoring all channels."
	}
	switch len(channelIDs) {
	case 0:
		return "You're not ignoring any channels."
	case 1:
		return fmt.Sprintf("You're ignoring %s.", model.ChannelMention(channelIDs[0]))
	case 2:
		return fmt.Sprintf("You're ignoring %s and %s.",
			model.ChannelMention(channelIDs[0]), model.ChannelMention(channelIDs[1]))
	}
	return bulletList("You're ignoring the following channels:", channelIDs, model.ChannelMention)
}

// FormatBlockList describes the users someone has blocked in a guild.
func FormatBlockList(userIDs []uint64) string {
	switch len(userIDs) {
	case 0:
		return "You don't have any users blocked."
	case 1:
		return fmt.Sprintf("You have blocked %s.", model.UserMention(userIDs[0]))
	case 2:
		return fmt.Sprintf("You blocked %s and %s.",
			model.UserMention(userIDs[0]), model.UserMention(userIDs[1]))
	}
	return bulletList("You've blocked the following users:", userIDs, model.UserMention)
}

// FormatHelp lists the commands with the given prefix.
func FormatHelp(prefix string) string {
	var b strings.Builder
	b.WriteString("Redirects:\n")
	fmt.Fprintf(&b, "%sredirect add <#channel>: DM pings from a channel (Manage Messages)\n", prefix)
	fmt.Fprintf(&b, "%sredirect remove <#channel>: stop redirecting a channel (Manage Messages)\n", prefix)
	fmt.Fprintf(&b, "%sredirect list: show redirected channels\n", prefix)
	b.WriteString("\nIgnores:\n")
	fmt.Fprintf(&b, "%signore add [#channel]: no DMs for a channel, or for every channel\n", prefix)
	fmt.Fprintf(&b, "%signore remove [#channel]: DMs again\n", prefix)
	fmt.Fprintf(&b, "%signore list: show ignored channels\n", prefix)
	b.WriteString("\nBlocks:\n")
	fmt.Fprintf(&b, "%sblock add <@user>: no DMs for pings from a user\n", prefix)
	fmt.Fprintf(&b, "%sblock remove <@user>: allow pings from a user again\n", prefix)
	fmt.Fprintf(&b, "%sblock list: show blocked users", prefix)
	return b.String()
}

func bulletList(header string, ids []uint64, render func(uint64) string) string {
	var b strings.Builder
	b.WriteString(header)
	for _, id := range ids {
		b.WriteString("\n- ")
		b.WriteString(render(id))
	}
	return b.String()
}
