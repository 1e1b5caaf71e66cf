package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"ping_relay/internal/delivery"
	"ping_relay/internal/model"
)

type memberCache interface {
	Member(guildID, userID string) (*discordgo.Member, error)
}

type memberAPI interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// MemberResolver looks guild members up in the gateway cache and falls
// back to the REST API on a cache miss.
type MemberResolver struct {
	cache memberCache
	api   memberAPI
}

// NewMemberResolver creates a MemberResolver. cache may be nil.
func NewMemberResolver(cache memberCache, api memberAPI) *MemberResolver {
	return &MemberResolver{cache: cache, api: api}
}

// LookupMember returns the profile of userID in guildID. A member that
// does not exist is reported as delivery.ErrNotFound.
func (r *MemberResolver) LookupMember(ctx context.Context, guildID, userID uint64) (model.User, error) {
	gid, uid := formatID(guildID), formatID(userID)

	if r.cache != nil {
		if m, err := r.cache.Member(gid, uid); err == nil && m.User != nil {
			return model.User{ID: userID, Bot: m.User.Bot}, nil
		}
	}

	m, err := r.api.GuildMember(gid, uid, discordgo.WithContext(ctx))
	if err != nil {
		return model.User{}, delivery.Classify(fmt.Errorf("get guild member: %w", err))
	}
	if m.User == nil {
		return model.User{}, &delivery.Error{Kind: delivery.ErrNotFound, Err: errors.New("member without user")}
	}
	return model.User{ID: userID, Bot: m.User.Bot}, nil
}
