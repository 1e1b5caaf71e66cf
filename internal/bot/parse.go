package bot

import (
	"strings"

	"ping_relay/internal/mention"
	"ping_relay/internal/model"
)

// Command is a parsed text command: "<prefix><name> [sub] [args...]".
type Command struct {
	Name string
	Sub  string
	Args []string
}

// ParseCommand splits content into a Command when it starts with prefix.
// Names and subcommands are case-insensitive.
func ParseCommand(content, prefix string) (Command, bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return Command{}, false
	}

	cmd := Command{Name: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		cmd.Sub = strings.ToLower(fields[1])
	}
	if len(fields) > 2 {
		cmd.Args = fields[2:]
	}
	return cmd, true
}

// ParseChannelArg reads an optional channel argument. No argument selects
// every channel of the guild.
func ParseChannelArg(args []string) (uint64, bool) {
	if len(args) == 0 {
		return model.AllChannels, true
	}
	id, ok := mention.ParseChannel(args[0])
	if !ok || id == model.AllChannels {
		return 0, false
	}
	return id, true
}

// ParseUserArg reads a required user argument.
func ParseUserArg(args []string) (uint64, bool) {
	if len(args) == 0 {
		return 0, false
	}
	return mention.ParseUser(args[0])
}
