// Package gate decides whether a user may reach a stateful handler.
package gate

import (
	"context"

	"github.com/you/tg-thumbnailer/internal/logx"
	"github.com/you/tg-thumbnailer/internal/store"
)

// subscribeFailOpen keeps the bot usable when the membership lookup itself
// fails (network error, channel misconfigured). Only a definite "not a
// participant" answer denies. Deliberate policy, revisit here if it changes.
const subscribeFailOpen = true

// Reason says why a check denied.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonBanned
	ReasonNotSubscribed
)

// Decision is the outcome of one gate check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Membership answers whether a user belongs to a channel. A (false, nil)
// return means a definite not-a-participant; a non-nil error means the
// lookup itself failed.
type Membership interface {
	IsMember(ctx context.Context, channel string, userID int64) (bool, error)
}

// Gate combines the ban flag with an optional force-subscribe check. It
// only reads; it never mutates the store.
type Gate struct {
	store   *store.Store
	members Membership
	channel string // force-subscribe channel username, "" disables
}

func New(s *store.Store, m Membership, channel string) *Gate {
	return &Gate{store: s, members: m, channel: channel}
}

// Channel returns the configured force-subscribe channel ("" if disabled).
func (g *Gate) Channel() string { return g.channel }

func (g *Gate) Check(ctx context.Context, userID int64) Decision {
	if g.store.IsBanned(userID) {
		return Decision{Allowed: false, Reason: ReasonBanned}
	}
	if g.channel == "" {
		return Decision{Allowed: true}
	}

	ok, err := g.members.IsMember(ctx, g.channel, userID)
	if err != nil {
		l := logx.FromCtx(ctx)
		l.Warn().Err(err).Str("channel", g.channel).
			Msg("membership lookup failed")
		if subscribeFailOpen {
			return Decision{Allowed: true}
		}
		return Decision{Allowed: false, Reason: ReasonNotSubscribed}
	}
	if !ok {
		return Decision{Allowed: false, Reason: ReasonNotSubscribed}
	}
	return Decision{Allowed: true}
}
