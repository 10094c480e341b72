// Package checkin implements the check-in/check-out state machine for
// guests, list owners, reservations and promoter-list entries.
//
// Every entity moves NotArrived -> CheckedIn -> CheckedOut and never back.
// Transitions are applied with a single conditional UPDATE so concurrent
// requests cannot both win.  Deployments without checkout columns record
// a checkout by clearing checked_in and appending to the checkout ledger
// in one transaction; the ledger then tells a departed entity apart from
// one that never arrived.
package checkin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/venue-checkin/internal/metrics"
	"github.com/iliyamo/venue-checkin/internal/model"
	"github.com/iliyamo/venue-checkin/internal/repository"
	"github.com/iliyamo/venue-checkin/internal/reward"
)

// CapabilitySource reports the deployment's optional schema.
type CapabilitySource interface {
	Capabilities(ctx context.Context) (repository.Capabilities, error)
}

// RewardTrigger awards promoter gifts.  *reward.Trigger satisfies it.
type RewardTrigger interface {
	ForGuestList(ctx context.Context, guestListID uint64) []reward.Gift
	ForPromoter(ctx context.Context, promoterID, eventID uint64) []reward.Gift
}

// RefreshSignal announces that a room changed.  *realtime.Refresher
// satisfies it; calls must not block.
type RefreshSignal interface {
	GuestListChanged(guestListID uint64)
	ReservationChanged(kind model.ReservationKind, id uint64)
	EventChanged(eventID uint64)
}

type noRefresh struct{}

func (noRefresh) GuestListChanged(uint64)                          {}
func (noRefresh) ReservationChanged(model.ReservationKind, uint64) {}
func (noRefresh) EventChanged(uint64)                              {}

// Service applies check-in transitions.
type Service struct {
	db           *sql.DB
	probe        CapabilitySource
	guests       *repository.GuestRepo
	guestLists   *repository.GuestListRepo
	reservations *repository.ReservationRepo
	promoters    *repository.PromoterRepo
	audit        *repository.CheckoutAuditRepo
	rewards      RewardTrigger
	refresh      RefreshSignal
	metrics      *metrics.CheckinMetrics
	log          *slog.Logger
	now          func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithRewards sets the reward trigger.  The default awards nothing.
func WithRewards(t RewardTrigger) Option { return func(s *Service) { s.rewards = t } }

// WithRefresh sets the refresh signal.  The default does nothing.
func WithRefresh(r RefreshSignal) Option { return func(s *Service) { s.refresh = r } }

// WithMetrics records transitions on m.
func WithMetrics(m *metrics.CheckinMetrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// NewService returns a Service backed by db.
func NewService(db *sql.DB, probe CapabilitySource, opts ...Option) *Service {
	s := &Service{
		db:           db,
		probe:        probe,
		guests:       repository.NewGuestRepo(db),
		guestLists:   repository.NewGuestListRepo(db),
		reservations: repository.NewReservationRepo(db),
		promoters:    repository.NewPromoterRepo(db),
		audit:        repository.NewCheckoutAuditRepo(db),
		refresh:      noRefresh{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.rewards == nil {
		s.rewards = reward.NewTrigger(nil, s.metrics, s.log)
	}
	return s
}

// GuestResult is returned by guest check-ins.  GiftsAwarded is never nil.
type GuestResult struct {
	Guest        *model.Guest  `json:"guest"`
	GiftsAwarded []reward.Gift `json:"giftsAwarded"`
}

// OwnerResult is returned by owner check-ins.  GiftsAwarded is never nil.
type OwnerResult struct {
	GuestList    *model.GuestList `json:"guestList"`
	GiftsAwarded []reward.Gift    `json:"giftsAwarded"`
}

// ReservationResult is returned by reservation transitions.
type ReservationResult struct {
	Reservation  *model.Reservation `json:"reservation"`
	CheckedOutAt *time.Time         `json:"checked_out_at,omitempty"`
}

// PromoterGuestResult is returned by promoter-list check-ins.
type PromoterGuestResult struct {
	Guest        *model.PromoterGuestEntry `json:"guest"`
	GiftsAwarded []reward.Gift             `json:"giftsAwarded"`
}

// clock returns the transition timestamp at the storage precision.
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// record counts the outcome of a transition once it returns.
func (s *Service) record(entity model.EntityKind, action string, err *error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case *err == nil:
	case errors.Is(*err, ErrInvalidTransition):
		outcome = metrics.OutcomeRejected
	case errors.Is(*err, repository.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.RecordTransition(string(entity), action, outcome)
}

// checkedOutByLedger reports whether an entity whose checked_in flag is
// clear has a recorded checkout, for deployments that track departure
// only in the ledger.
func (s *Service) checkedOutByLedger(ctx context.Context, kind model.EntityKind, id uint64, checkedIn bool) (bool, error) {
	if checkedIn {
		return false, nil
	}
	return s.audit.HasCheckout(ctx, kind, id)
}

// checkoutGuard classifies a checkout attempt against the current state.
func checkoutGuard(checkedIn, checkedOut bool) error {
	switch {
	case checkedOut:
		return ErrAlreadyCheckedOut
	case !checkedIn:
		return ErrNotYetCheckedIn
	}
	return nil
}

func stamp(ctx context.Context, rec *model.CheckoutAuditRecord) {
	rec.Status = model.CheckoutStatusCompleted
	rec.ActorUserID = actorID(ctx)
	rec.CreatedAt = rec.CheckedOutAt
}

// appendLedger writes one checkout record after a checkout that has its
// own checked_out column.  Failures are logged and never undo the checkout.
func (s *Service) appendLedger(ctx context.Context, rec *model.CheckoutAuditRecord) {
	stamp(ctx, rec)
	if _, err := s.audit.Insert(ctx, rec); err != nil {
		s.log.Error("checkin: ledger write failed", "entity", rec.EntityKind, "entity_id", rec.EntityID, "error", err)
		s.metrics.RecordSideEffectFailure("ledger")
	}
}

// clearWithLedger checks an entity out where the ledger is the only record
// of departure: update runs the conditional UPDATE and rec is appended in
// the same transaction, so neither lands without the other.  It reports
// false when update matched no row.
func (s *Service) clearWithLedger(ctx context.Context, rec *model.CheckoutAuditRecord, update func(tx *sql.Tx) (bool, error)) (bool, error) {
	stamp(ctx, rec)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	ok, err := update(tx)
	if err != nil || !ok {
		return false, err
	}
	if _, err := s.audit.InsertTx(ctx, tx, rec); err != nil {
		s.metrics.RecordSideEffectFailure("ledger")
		return false, fmt.Errorf("append checkout ledger: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// withReservation fills the event, venue and date of rec from the
// reservation it belongs to.  A missing reservation leaves them empty.
func (s *Service) withReservation(rec *model.CheckoutAuditRecord, res *model.Reservation) {
	if res == nil {
		return
	}
	resID := res.ID
	venueID := res.VenueID
	date := res.Date
	rec.ReservationID = &resID
	rec.EventID = res.EventID
	rec.VenueID = &venueID
	rec.ServiceDate = &date
}

// owningReservation looks up the reservation of a guest list for audit
// context.  Lookup failures are logged and yield nils.
func (s *Service) owningReservation(ctx context.Context, listID uint64, caps repository.Capabilities) (*model.GuestList, *model.Reservation) {
	gl, err := s.guestLists.Get(ctx, listID, caps)
	if err != nil {
		s.log.Warn("checkin: guest list lookup failed", "guest_list_id", listID, "error", err)
		return nil, nil
	}
	res, err := s.reservations.Get(ctx, gl.ReservationKind, gl.ReservationID)
	if err != nil {
		s.log.Warn("checkin: reservation lookup failed", "guest_list_id", listID, "error", err)
		return gl, nil
	}
	return gl, res
}

// ListCheckoutHistory returns ledger rows matching f, newest first.
func (s *Service) ListCheckoutHistory(ctx context.Context, f model.CheckoutFilter) ([]model.CheckoutAuditRecord, error) {
	return s.audit.List(ctx, f)
}
