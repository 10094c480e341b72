// Package reward awards promoter gifts after check-ins.  Awarding is best
// effort: nothing here can fail a check-in.
package reward

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/iliyamo/venue-checkin/internal/metrics"
)

// Gift is one incentive granted to a promoter.
type Gift struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
}

// Result is what an Awarder reports for one check-in.
type Result struct {
	Success bool   `json:"success"`
	Gifts   []Gift `json:"gifts"`
}

// Awarder evaluates gift rules for a check-in.
type Awarder interface {
	AwardForPromoter(ctx context.Context, promoterID, eventID uint64) (Result, error)
	AwardForGuestList(ctx context.Context, guestListID uint64) (Result, error)
}

// Nop awards nothing.
type Nop struct{}

func (Nop) AwardForPromoter(context.Context, uint64, uint64) (Result, error) {
	return Result{Success: true}, nil
}

func (Nop) AwardForGuestList(context.Context, uint64) (Result, error) {
	return Result{Success: true}, nil
}

// Trigger calls an Awarder and swallows whatever goes wrong.
type Trigger struct {
	awarder Awarder
	metrics *metrics.CheckinMetrics
	log     *slog.Logger
}

// NewTrigger returns a Trigger.  A nil awarder behaves like Nop.
func NewTrigger(a Awarder, m *metrics.CheckinMetrics, log *slog.Logger) *Trigger {
	if a == nil {
		a = Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Trigger{awarder: a, metrics: m, log: log}
}

// ForGuestList awards gifts for a check-in on a promoter-attributed guest
// list.  It never returns nil.
func (t *Trigger) ForGuestList(ctx context.Context, guestListID uint64) []Gift {
	return t.run("guest_list", slog.Uint64("guest_list_id", guestListID), func() (Result, error) {
		return t.awarder.AwardForGuestList(ctx, guestListID)
	})
}

// ForPromoter awards gifts for a check-in on a promoter's list.  It never
// returns nil.
func (t *Trigger) ForPromoter(ctx context.Context, promoterID, eventID uint64) []Gift {
	return t.run("promoter", slog.Uint64("promoter_id", promoterID), func() (Result, error) {
		return t.awarder.AwardForPromoter(ctx, promoterID, eventID)
	})
}

func (t *Trigger) run(target string, attr slog.Attr, award func() (Result, error)) (gifts []Gift) {
	gifts = []Gift{}
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("reward: awarder panicked", "target", target, attr, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			t.metrics.RecordSideEffectFailure("reward")
			gifts = []Gift{}
		}
	}()
	res, err := award()
	if err != nil {
		t.log.Warn("reward: award failed", "target", target, attr, "error", err)
		t.metrics.RecordSideEffectFailure("reward")
		return gifts
	}
	if !res.Success {
		t.log.Info("reward: award declined", "target", target, attr)
		return gifts
	}
	if len(res.Gifts) > 0 {
		t.log.Info("reward: gifts awarded", "target", target, attr, "count", len(res.Gifts))
		gifts = res.Gifts
	}
	return gifts
}
