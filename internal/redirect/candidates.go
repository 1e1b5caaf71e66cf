package redirect

import (
	"slices"

	"ping_relay/internal/mention"
	"ping_relay/internal/model"
)

// Candidates returns the users a message should be evaluated for, without
// duplicates. When the message replies to a parent whose author is
// mentioned in the parent and is someone else, that author comes first.
func Candidates(msg *model.Message) []model.User {
	var users []model.User
	if p := msg.Parent; p != nil && p.Author.ID != msg.Author.ID && mentions(p, p.Author.ID) {
		users = append(users, p.Author)
	}
	users = append(users, mentioned(msg)...)

	seen := make(map[uint64]struct{}, len(users))
	return slices.DeleteFunc(users, func(u model.User) bool {
		if _, ok := seen[u.ID]; ok {
			return true
		}
		seen[u.ID] = struct{}{}
		return false
	})
}

func mentioned(msg *model.Message) []model.User {
	if msg.MentionsResolved {
		return slices.Clone(msg.Mentions)
	}
	var users []model.User
	for id := range mention.Users(msg.Content, msg.Author.ID) {
		users = append(users, model.User{ID: id})
	}
	return users
}

func mentions(msg *model.Message, userID uint64) bool {
	if msg.MentionsResolved {
		return slices.ContainsFunc(msg.Mentions, func(u model.User) bool { return u.ID == userID })
	}
	for id := range mention.Users(msg.Content, 0) {
		if id == userID {
			return true
		}
	}
	return false
}
