// Package redirect decides, for every message posted in a redirect channel,
// which mentioned users get a direct-message notification, and sends it.
package redirect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"ping_relay/internal/delivery"
	"ping_relay/internal/model"
)

// Rules is the subset of the rule store the engine reads.
type Rules interface {
	IsRedirect(ctx context.Context, channelID uint64) (bool, error)
	IsIgnored(ctx context.Context, userID, guildID, channelID uint64) (bool, error)
	IsBlocked(ctx context.Context, userID, guildID, blockedUserID uint64) (bool, error)
}

// Presence records and samples user activity.
type Presence interface {
	UpdateUser(userID, channelID uint64)
	IsActive(ctx context.Context, userID, channelID uint64) bool
}

// Members resolves a user to a guild member profile. A miss must be
// reported as delivery.ErrNotFound.
type Members interface {
	LookupMember(ctx context.Context, guildID, userID uint64) (model.User, error)
}

// Sender delivers a single notification.
type Sender interface {
	Send(ctx context.Context, recipientID uint64, content string, silent bool) error
}

// DefaultMaxConcurrent bounds how many candidates of one message are
// evaluated at the same time.
const DefaultMaxConcurrent = 10

// Engine is the notification redirection pipeline.
type Engine struct {
	rules         Rules
	presence      Presence
	members       Members
	sender        Sender
	maxConcurrent int
	log           *slog.Logger
}

// New creates an Engine. maxConcurrent <= 0 selects DefaultMaxConcurrent.
func New(rules Rules, presence Presence, members Members, sender Sender, maxConcurrent int, log *slog.Logger) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Engine{
		rules:         rules,
		presence:      presence,
		members:       members,
		sender:        sender,
		maxConcurrent: maxConcurrent,
		log:           log,
	}
}

// HandleMessage runs the pipeline for one inbound message and returns one
// Outcome per candidate, in candidate order. The author's presence is
// always updated first. A message outside a redirect channel yields no
// outcomes. Only a failure to read the redirect rule is returned as an
// error; per-candidate failures are reported in the outcomes.
func (e *Engine) HandleMessage(ctx context.Context, msg *model.Message) ([]Outcome, error) {
	e.presence.UpdateUser(msg.Author.ID, msg.ChannelID)

	redirect, err := e.rules.IsRedirect(ctx, msg.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("check redirect channel: %w", err)
	}
	if !redirect {
		return nil, nil
	}

	candidates := Candidates(msg)
	if len(candidates) == 0 {
		return nil, nil
	}

	formats := parseFormatting(msg.Content)
	outcomes := make([]Outcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, c := range candidates {
		g.Go(func() error {
			outcomes[i] = e.evaluate(ctx, msg, c, formats)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, nil
}

func (e *Engine) evaluate(ctx context.Context, msg *model.Message, c model.User, formats []formattedLine) Outcome {
	log := e.log.With("message_id", msg.ID, "channel_id", msg.ChannelID, "user_id", c.ID)

	if c.Bot {
		return skipped(log, c.ID, StatusBot)
	}
	if c.ID == msg.Author.ID {
		return skipped(log, c.ID, StatusSelf)
	}

	if e.presence.IsActive(ctx, c.ID, msg.ChannelID) {
		return skipped(log, c.ID, StatusActive)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{UserID: c.ID, Status: StatusCancelled, Err: err}
	}

	ignored, err := e.rules.IsIgnored(ctx, c.ID, msg.GuildID, msg.ChannelID)
	if err != nil {
		log.Error("check ignore rule", "error", err)
		return Outcome{UserID: c.ID, Status: StatusRuleError, Err: err}
	}
	if ignored {
		return skipped(log, c.ID, StatusIgnored)
	}

	blocked, err := e.rules.IsBlocked(ctx, c.ID, msg.GuildID, msg.Author.ID)
	if err != nil {
		log.Error("check block rule", "error", err)
		return Outcome{UserID: c.ID, Status: StatusRuleError, Err: err}
	}
	if blocked {
		return skipped(log, c.ID, StatusBlocked)
	}

	member, err := e.members.LookupMember(ctx, msg.GuildID, c.ID)
	switch {
	case errors.Is(err, delivery.ErrNotFound):
		log.Debug("member not found", "error", err)
		return Outcome{UserID: c.ID, Status: StatusNotFound, Err: err}
	case err != nil:
		log.Error("look up member", "kind", delivery.KindOf(err), "error", err)
		return Outcome{UserID: c.ID, Status: StatusLookupFailed, Err: err}
	}
	if member.Bot {
		return skipped(log, c.ID, StatusBot)
	}

	content := compose(msg, member.ID, formats)
	if err := e.sender.Send(ctx, member.ID, content, msg.SuppressNotifications); err != nil {
		if kind := delivery.KindOf(err); kind == delivery.ErrForbidden {
			log.Warn("send notification refused", "error", err)
		} else {
			log.Error("send notification", "kind", kind, "error", err)
		}
		return Outcome{UserID: c.ID, Status: StatusSendFailed, Err: err}
	}

	log.Info("notification delivered", "author_id", msg.Author.ID, "silent", msg.SuppressNotifications)
	return Outcome{UserID: c.ID, Status: StatusDelivered}
}

func skipped(log *slog.Logger, userID uint64, status Status) Outcome {
	log.Debug("candidate skipped", "reason", string(status))
	return Outcome{UserID: userID, Status: status}
}
