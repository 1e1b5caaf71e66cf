package redirect

import (
	"testing"

	"ping_relay/internal/model"
)

func TestNotification(t *testing.T) {
	const link = "https://discord.com/channels/10/20/30"

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "plain",
			content: "hey <@42> check this",
			want:    "You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "heading",
			content: "# release notes for <@42>",
			want:    "# You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "shouting heading",
			content: "## WAKE UP <@42>!!",
			want:    "## YOU WERE PINGED BY <@1> IN <#20>!! [JUMP!!! ↗](" + link + ")",
		},
		{
			name:    "nickname mention in quote",
			content: "> look at this <@!42>",
			want:    "> You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "stacked prefixes",
			content: "> # agenda for <@42>",
			want:    "> # You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "numbered list on a later line",
			content: "todo:\n1. <@42> reviews the patch\n2. ship it",
			want:    "1. You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "formatted line mentions someone else",
			content: "# hello <@43>\nand <@42>",
			want:    "You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "shouting without a heading",
			content: "HEY <@42>",
			want:    "You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
		{
			name:    "heading without a space",
			content: "#<@42>",
			want:    "You were pinged by <@1> in <#20>. [Jump! ↗](" + link + ")",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := newMessage(tt.content)
			if got := Notification(msg, 42); got != tt.want {
				t.Errorf("Notification() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotificationCarriesAuthorAndChannel(t *testing.T) {
	msg := &model.Message{ID: 7, GuildID: 5, ChannelID: 6, Author: model.User{ID: 3}, Content: "<@4>"}
	want := "You were pinged by <@3> in <#6>. [Jump! ↗](https://discord.com/channels/5/6/7)"
	if got := Notification(msg, 4); got != want {
		t.Errorf("Notification() = %q, want %q", got, want)
	}
}
