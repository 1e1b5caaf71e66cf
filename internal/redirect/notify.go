package redirect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"ping_relay/internal/model"
)

// Lines that open with headings, quotes or list numbers and contain a user
// mention keep that block formatting in the notification.
var formattedMention = regexp.MustCompile(`(?m)^((?:#{1,3}[ \t]+|>>>[ \t]+|>[ \t]+|\d+\.[ \t]+)+)(.*<@!?\d+>.*)$`)

type formattedLine struct {
	prefix   string
	text     string
	shouting bool
}

func parseFormatting(content string) []formattedLine {
	matches := formattedMention.FindAllStringSubmatch(content, -1)
	lines := make([]formattedLine, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, formattedLine{
			prefix:   m[1],
			text:     m[2],
			shouting: !strings.ContainsFunc(m[2], isLowerLetter),
		})
	}
	return lines
}

// Letters without case count as lower so that only text written entirely
// in capitals is treated as shouting.
func isLowerLetter(r rune) bool {
	return unicode.IsLetter(r) && !unicode.IsUpper(r)
}

// Notification builds the text sent to recipientID about msg. A mention
// on a formatted line carries that line's prefix, and a line written in
// capitals gets the shouting variant.
func Notification(msg *model.Message, recipientID uint64) string {
	return compose(msg, recipientID, parseFormatting(msg.Content))
}

func compose(msg *model.Message, recipientID uint64, formats []formattedLine) string {
	prefix, shouting := "", false
	id := strconv.FormatUint(recipientID, 10)
	for _, l := range formats {
		if strings.Contains(l.text, "<@"+id+">") || strings.Contains(l.text, "<@!"+id+">") {
			prefix, shouting = l.prefix, l.shouting
			break
		}
	}

	author := model.UserMention(msg.Author.ID)
	channel := model.ChannelMention(msg.ChannelID)
	if shouting {
		return fmt.Sprintf("%sYOU WERE PINGED BY %s IN %s!! [JUMP!!! ↗](%s)", prefix, author, channel, msg.JumpLink())
	}
	return fmt.Sprintf("%sYou were pinged by %s in %s. [Jump! ↗](%s)", prefix, author, channel, msg.JumpLink())
}
