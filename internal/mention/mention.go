// Package mention extracts user mention tokens from raw message text.
//
// A mention token is "<@ID>" or "<@!ID>" where ID is a decimal snowflake.
// A token whose opening bracket is escaped with a backslash is plain text.
package mention

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Users returns the users mentioned in text, in order of first appearance,
// without duplicates and without author. The sequence is lazy and may be
// ranged over more than once; every range rescans text from the start.
func Users(text string, author uint64) iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		seen := make(map[uint64]struct{})
		pos := 0
		for pos < len(text) {
			open := strings.IndexByte(text[pos:], '<')
			if open < 0 {
				return
			}
			open += pos

			if open > 0 && text[open-1] == '\\' {
				pos = open + 1
				continue
			}

			closing := strings.IndexByte(text[open+1:], '>')
			if closing < 0 {
				return
			}
			closing += open + 1
			pos = closing + 1

			id, ok := parseUserBody(text[open+1 : closing])
			if !ok || id == author {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			if !yield(id) {
				return
			}
		}
	}
}

// Collect is Users materialized into a slice.
func Collect(text string, author uint64) []uint64 {
	return slices.Collect(Users(text, author))
}

// ParseUser parses a single user reference: a mention token or a bare ID.
func ParseUser(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if body, ok := unwrap(s); ok {
		return parseUserBody(body)
	}
	return parseID(s)
}

// ParseChannel parses a single channel reference: "<#ID>" or a bare ID.
func ParseChannel(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if body, ok := unwrap(s); ok {
		rest, found := strings.CutPrefix(body, "#")
		if !found {
			return 0, false
		}
		return parseID(rest)
	}
	return parseID(s)
}

func unwrap(s string) (string, bool) {
	if len(s) < 2 || s[0] != '<' || s[len(s)-1] != '>' {
		return "", false
	}
	return s[1 : len(s)-1], true
}

// parseUserBody parses the text between the brackets of a user mention.
func parseUserBody(body string) (uint64, bool) {
	rest, ok := strings.CutPrefix(body, "@")
	if !ok {
		return 0, false
	}
	rest = strings.TrimPrefix(rest, "!")
	return parseID(rest)
}

func parseID(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
