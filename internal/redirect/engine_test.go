package redirect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ping_relay/internal/delivery"
	"ping_relay/internal/model"
	"ping_relay/internal/storage"
)

const (
	guildID   uint64 = 10
	channelID uint64 = 20
	messageID uint64 = 30
	authorID  uint64 = 1
)

// --- mocks ---

type fakePresence struct {
	mu      sync.Mutex
	updates []model.Activity
	active  map[uint64]uint64
	onCheck func()
}

func (p *fakePresence) UpdateUser(userID, channelID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, model.Activity{UserID: userID, ChannelID: channelID})
}

func (p *fakePresence) IsActive(_ context.Context, userID, channelID uint64) bool {
	if p.onCheck != nil {
		p.onCheck()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.active[userID]
	return ok && ch == channelID
}

type fakeMembers struct {
	bots     map[uint64]bool
	notFound map[uint64]bool
	err      error
}

func (m *fakeMembers) LookupMember(_ context.Context, _, userID uint64) (model.User, error) {
	if m.err != nil {
		return model.User{}, m.err
	}
	if m.notFound[userID] {
		return model.User{}, &delivery.Error{Kind: delivery.ErrNotFound, Err: errors.New("unknown member")}
	}
	return model.User{ID: userID, Bot: m.bots[userID]}, nil
}

type sentNotification struct {
	RecipientID uint64
	Content     string
	Silent      bool
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentNotification
	failFor map[uint64]error
}

func (s *fakeSender) Send(_ context.Context, recipientID uint64, content string, silent bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[recipientID]; err != nil {
		return err
	}
	s.sent = append(s.sent, sentNotification{RecipientID: recipientID, Content: content, Silent: silent})
	return nil
}

func (s *fakeSender) recipients() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []uint64
	for _, n := range s.sent {
		ids = append(ids, n.RecipientID)
	}
	slices.Sort(ids)
	return ids
}

type failingIgnores struct {
	*storage.SQLite
	err error
}

func (f failingIgnores) IsIgnored(context.Context, uint64, uint64, uint64) (bool, error) {
	return false, f.err
}

// --- helpers ---

type fixture struct {
	store    *storage.SQLite
	presence *fakePresence
	members  *fakeMembers
	sender   *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return &fixture{
		store:    store,
		presence: &fakePresence{active: map[uint64]uint64{}},
		members:  &fakeMembers{bots: map[uint64]bool{}, notFound: map[uint64]bool{}},
		sender:   &fakeSender{failFor: map[uint64]error{}},
	}
}

func (f *fixture) engine(rules Rules) *Engine {
	if rules == nil {
		rules = f.store
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(rules, f.presence, f.members, f.sender, 4, log)
}

func (f *fixture) enableRedirect(t *testing.T) {
	t.Helper()
	if err := f.store.AddRedirect(context.Background(), guildID, channelID); err != nil {
		t.Fatalf("AddRedirect: %v", err)
	}
}

func newMessage(content string) *model.Message {
	return &model.Message{
		ID:        messageID,
		GuildID:   guildID,
		ChannelID: channelID,
		Author:    model.User{ID: authorID},
		Content:   content,
	}
}

func statuses(outcomes []Outcome) []string {
	var out []string
	for _, o := range outcomes {
		out = append(out, fmt.Sprintf("%d:%s", o.UserID, o.Status))
	}
	return out
}

// --- tests ---

func TestHandleMessageEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.enableRedirect(t)

	outcomes, err := f.engine(nil).HandleMessage(context.Background(), newMessage("hey <@42> check this"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if diff := cmp.Diff([]string{"42:delivered"}, statuses(outcomes)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	want := []sentNotification{{
		RecipientID: 42,
		Content:     "You were pinged by <@1> in <#20>. [Jump! ↗](https://discord.com/channels/10/20/30)",
	}}
	if diff := cmp.Diff(want, f.sender.sent); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]model.Activity{{UserID: authorID, ChannelID: channelID}}, f.presence.updates); diff != "" {
		t.Errorf("presence updates mismatch (-want +got):\n%s", diff)
	}
	if got := Delivered(outcomes); got != 1 {
		t.Errorf("Delivered = %d, want 1", got)
	}
}

func TestHandleMessageOutsideRedirectChannel(t *testing.T) {
	f := newFixture(t)

	outcomes, err := f.engine(nil).HandleMessage(context.Background(), newMessage("hey <@42>"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("outcomes = %v, want none", outcomes)
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("sent = %v, want none", f.sender.sent)
	}
	if diff := cmp.Diff([]model.Activity{{UserID: authorID, ChannelID: channelID}}, f.presence.updates); diff != "" {
		t.Errorf("presence must be updated even without a redirect (-want +got):\n%s", diff)
	}
}

func TestHandleMessageFilters(t *testing.T) {
	ctx := context.Background()
	sendErr := &delivery.Error{Kind: delivery.ErrForbidden, Err: errors.New("cannot send messages to this user")}

	tests := []struct {
		name      string
		setup     func(t *testing.T, f *fixture)
		msg       func() *model.Message
		want      []string
		wantSends []uint64
	}{
		{
			name: "resolved bot mention",
			msg: func() *model.Message {
				m := newMessage("<@42>")
				m.Mentions = []model.User{{ID: 42, Bot: true}}
				m.MentionsResolved = true
				return m
			},
			want: []string{"42:bot"},
		},
		{
			name: "author mentions self",
			msg: func() *model.Message {
				m := newMessage("<@1>")
				m.Mentions = []model.User{{ID: authorID}}
				m.MentionsResolved = true
				return m
			},
			want: []string{"1:self"},
		},
		{
			name: "escaped mention",
			msg:  func() *model.Message { return newMessage(`\<@42>`) },
		},
		{
			name:      "duplicate mention delivers once",
			msg:       func() *model.Message { return newMessage("<@42> and again <@!42>") },
			want:      []string{"42:delivered"},
			wantSends: []uint64{42},
		},
		{
			name: "resolved duplicates delivered once",
			msg: func() *model.Message {
				m := newMessage("<@42> <@42>")
				m.Mentions = []model.User{{ID: 42}, {ID: 42}}
				m.MentionsResolved = true
				return m
			},
			want:      []string{"42:delivered"},
			wantSends: []uint64{42},
		},
		{
			name: "active in channel",
			setup: func(_ *testing.T, f *fixture) {
				f.presence.active[42] = channelID
			},
			msg:  func() *model.Message { return newMessage("<@42>") },
			want: []string{"42:active"},
		},
		{
			name: "active elsewhere",
			setup: func(_ *testing.T, f *fixture) {
				f.presence.active[42] = 21
			},
			msg:       func() *model.Message { return newMessage("<@42>") },
			want:      []string{"42:delivered"},
			wantSends: []uint64{42},
		},
		{
			name: "global ignore",
			setup: func(t *testing.T, f *fixture) {
				if err := f.store.AddIgnore(ctx, 42, guildID, model.AllChannels); err != nil {
					t.Fatal(err)
				}
			},
			msg:  func() *model.Message { return newMessage("<@42>") },
			want: []string{"42:ignored"},
		},
		{
			name: "channel ignore",
			setup: func(t *testing.T, f *fixture) {
				if err := f.store.AddIgnore(ctx, 42, guildID, channelID); err != nil {
					t.Fatal(err)
				}
			},
			msg:  func() *model.Message { return newMessage("<@42>") },
			want: []string{"42:ignored"},
		},
		{
			name: "ignore for another channel",
			setup: func(t *testing.T, f *fixture) {
				if err := f.store.AddIgnore(ctx, 42, guildID, 21); err != nil {
					t.Fatal(err)
				}
			},
			msg:       func() *model.Message { return newMessage("<@42>") },
			want:      []string{"42:delivered"},
			wantSends: []uint64{42},
		},
		{
			name: "candidate blocks author",
			setup: func(t *testing.T, f *fixture) {
				if err := f.store.AddBlock(ctx, 42, guildID, authorID); err != nil {
					t.Fatal(err)
				}
			},
			msg:  func() *model.Message { return newMessage("<@42>") },
			want: []string{"42:blocked"},
		},
		{
			name: "author blocks candidate",
			setup: func(t *testing.T, f *fixture) {
				if err := f.store.AddBlock(ctx, authorID, guildID, 42); err != nil {
					t.Fatal(err)
				}
			},
			msg:       func() *model.Message { return newMessage("<@42>") },
			want:      []string{"42:delivered"},
			wantSends: []uint64{42},
		},
		{
			name: "member not found",
			setup: func(_ *testing.T, f *fixture) {
				f.members.notFound[42] = true
			},
			msg:       func() *model.Message { return newMessage("<@42> <@43>") },
			want:      []string{"42:not_found", "43:delivered"},
			wantSends: []uint64{43},
		},
		{
			name: "member lookup fails",
			setup: func(_ *testing.T, f *fixture) {
				f.members.err = &delivery.Error{Kind: delivery.ErrTransient, Err: errors.New("gateway timeout")}
			},
			msg:  func() *model.Message { return newMessage("<@42>") },
			want: []string{"42:lookup_failed"},
		},
		{
			name: "lookup reveals bot",
			setup: func(_ *testing.T, f *fixture) {
				f.members.bots[42] = true
			},
			msg:  func() *model.Message { return newMessage("<@42>") },
			want: []string{"42:bot"},
		},
		{
			name: "send failure does not affect others",
			setup: func(_ *testing.T, f *fixture) {
				f.sender.failFor[42] = sendErr
			},
			msg:       func() *model.Message { return newMessage("<@42> <@43> <@44>") },
			want:      []string{"42:send_failed", "43:delivered", "44:delivered"},
			wantSends: []uint64{43, 44},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.enableRedirect(t)
			if tt.setup != nil {
				tt.setup(t, f)
			}

			outcomes, err := f.engine(nil).HandleMessage(ctx, tt.msg())
			if err != nil {
				t.Fatalf("HandleMessage: %v", err)
			}
			if diff := cmp.Diff(tt.want, statuses(outcomes)); diff != "" {
				t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSends, f.sender.recipients()); diff != "" {
				t.Errorf("recipients mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleMessageReplyParent(t *testing.T) {
	f := newFixture(t)
	f.enableRedirect(t)

	msg := newMessage("agreed, <@42> should look")
	msg.Parent = &model.Message{
		ID:        29,
		GuildID:   guildID,
		ChannelID: channelID,
		Author:    model.User{ID: 99},
		Content:   "note to self <@99>",
	}

	outcomes, err := f.engine(nil).HandleMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if diff := cmp.Diff([]string{"99:delivered", "42:delivered"}, statuses(outcomes)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleMessageSilent(t *testing.T) {
	f := newFixture(t)
	f.enableRedirect(t)

	msg := newMessage("<@42>")
	msg.SuppressNotifications = true
	if _, err := f.engine(nil).HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if len(f.sender.sent) != 1 || !f.sender.sent[0].Silent {
		t.Errorf("sent = %+v, want one silent notification", f.sender.sent)
	}
}

func TestHandleMessageRuleFailure(t *testing.T) {
	f := newFixture(t)
	f.enableRedirect(t)
	rules := failingIgnores{SQLite: f.store, err: errors.New("disk I/O error")}

	outcomes, err := f.engine(rules).HandleMessage(context.Background(), newMessage("<@42>"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if diff := cmp.Diff([]string{"42:rule_error"}, statuses(outcomes)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("sent = %v, want none", f.sender.sent)
	}
}

func TestHandleMessageRedirectCheckFails(t *testing.T) {
	f := newFixture(t)
	f.store.Close()

	_, err := f.engine(nil).HandleMessage(context.Background(), newMessage("<@42>"))
	var storeErr *storage.Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("HandleMessage error = %v, want *storage.Error", err)
	}
	if len(f.presence.updates) != 1 {
		t.Errorf("presence updates = %d, want 1", len(f.presence.updates))
	}
}

func TestHandleMessageCancelledDuringDebounce(t *testing.T) {
	f := newFixture(t)
	f.enableRedirect(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.presence.onCheck = cancel

	outcomes, err := f.engine(nil).HandleMessage(ctx, newMessage("<@42>"))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if diff := cmp.Diff([]string{"42:cancelled"}, statuses(outcomes)); diff != "" {
		t.Errorf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("sent = %v, want none", f.sender.sent)
	}
}
