// Package delivery sends direct-message notifications and classifies the
// ways they fail.
package delivery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"
)

type discordAPI interface {
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Dispatcher delivers one notification per call. It never retries.
type Dispatcher struct {
	api     discordAPI
	limiter *rate.Limiter
}

// New creates a Dispatcher that sends at most ratePerSec messages per
// second. A non-positive rate disables the limit.
func New(api discordAPI, ratePerSec int) *Dispatcher {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)
	}
	return &Dispatcher{api: api, limiter: limiter}
}

// Send opens (or reuses) the DM channel with the recipient and posts
// content to it. When silent is set the message carries the
// suppress-notifications flag. Failures are returned as *Error.
func (d *Dispatcher) Send(ctx context.Context, recipientID uint64, content string, silent bool) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return &Error{Kind: ErrTransient, Err: fmt.Errorf("wait for rate limit: %w", err)}
	}

	dm, err := d.api.UserChannelCreate(strconv.FormatUint(recipientID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return Classify(fmt.Errorf("open dm channel: %w", err))
	}

	msg := &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if silent {
		msg.Flags = discordgo.MessageFlagsSuppressNotifications
	}

	if _, err := d.api.ChannelMessageSendComplex(dm.ID, msg, discordgo.WithContext(ctx)); err != nil {
		return Classify(fmt.Errorf("send dm: %w", err))
	}
	return nil
}
