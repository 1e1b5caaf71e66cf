package bot

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"ping_relay/internal/model"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Command
		wantOK  bool
	}{
		{
			name:    "name only",
			content: "n!help",
			want:    Command{Name: "help"},
			wantOK:  true,
		},
		{
			name:    "sub and args",
			content: "n!block add <@42>",
			want:    Command{Name: "block", Sub: "add", Args: []string{"<@42>"}},
			wantOK:  true,
		},
		{
			name:    "case and spacing",
			content: "n!  Redirect   LIST ",
			want:    Command{Name: "redirect", Sub: "list"},
			wantOK:  true,
		},
		{
			name:    "args keep case",
			content: "n!ignore add <#20> Extra",
			want:    Command{Name: "ignore", Sub: "add", Args: []string{"<#20>", "Extra"}},
			wantOK:  true,
		},
		{
			name:    "prefix only",
			content: "n!",
		},
		{
			name:    "no prefix",
			content: "help",
		},
		{
			name:    "prefix later in text",
			content: "try n!help",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCommand(tt.content, "n!")
			if ok != tt.wantOK {
				t.Fatalf("ParseCommand() ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseCommand() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCommandEmptyPrefix(t *testing.T) {
	if _, ok := ParseCommand("help", ""); ok {
		t.Error("ParseCommand with empty prefix should not match")
	}
}

func TestParseChannelArg(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   uint64
		wantOK bool
	}{
		{name: "no argument is global", want: model.AllChannels, wantOK: true},
		{name: "channel mention", args: []string{"<#20>"}, want: 20, wantOK: true},
		{name: "bare id", args: []string{"20"}, want: 20, wantOK: true},
		{name: "zero id", args: []string{"<#0>"}},
		{name: "user mention", args: []string{"<@20>"}},
		{name: "garbage", args: []string{"general"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseChannelArg(tt.args)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseChannelArg(%v) = %d, %v; want %d, %v", tt.args, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseUserArg(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   uint64
		wantOK bool
	}{
		{name: "missing"},
		{name: "mention", args: []string{"<@42>"}, want: 42, wantOK: true},
		{name: "nickname mention", args: []string{"<@!42>"}, want: 42, wantOK: true},
		{name: "bare id", args: []string{"42"}, want: 42, wantOK: true},
		{name: "channel mention", args: []string{"<#42>"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUserArg(tt.args)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseUserArg(%v) = %d, %v; want %d, %v", tt.args, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
