package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"avacharge/backend/services/notifier-service/internal/models"
)

const (
	defaultResetConcurrency = 8
	rollbackTimeout         = 5 * time.Second
)

// Options tunes NotifierService.
type Options struct {
	Window Window
	// StrictStatus rejects pushes with an unrecognized status instead of sending the
	// generic "Status Update" message.
	StrictStatus     bool
	ResetConcurrency int
	Observers        []Observer
}

// NotifierService evaluates station snapshots and emits notifications.
type NotifierService struct {
	store            StationStore
	sender           Sender
	observers        []Observer
	window           Window
	strictStatus     bool
	resetConcurrency int
	logger           *zap.Logger
	now              func() time.Time
}

// NewNotifierService builds service.
func NewNotifierService(store StationStore, sender Sender, opts Options, logger *zap.Logger) *NotifierService {
	if opts.Window.Upper <= opts.Window.Lower {
		opts.Window = DefaultWindow
	}
	if opts.ResetConcurrency <= 0 {
		opts.ResetConcurrency = defaultResetConcurrency
	}
	return &NotifierService{
		store:            store,
		sender:           sender,
		observers:        opts.Observers,
		window:           opts.Window,
		strictStatus:     opts.StrictStatus,
		resetConcurrency: opts.ResetConcurrency,
		logger:           logger,
		now:              time.Now,
	}
}

// PollResult lists the rules that fired during one poll pass.
type PollResult struct {
	Fired  []string
	Failed int
}

// Summary renders the plain-text poll response.
func (r PollResult) Summary() string {
	sent := "none"
	if len(r.Fired) > 0 {
		sent = strings.Join(r.Fired, ", ")
	}
	text := "✅ Notifications sent: " + sent
	if r.Failed > 0 {
		text += fmt.Sprintf(" (%d station(s) failed)", r.Failed)
	}
	return text
}

// Poll reads one snapshot and evaluates both rules for every station. A failing
// station is logged and counted; it never stops the pass.
func (s *NotifierService) Poll(ctx context.Context) (PollResult, error) {
	var result PollResult

	records, err := s.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: fetch stations: %w", ErrDownstream, err)
	}

	now := s.now()
	for _, rec := range records {
		fired, err := s.evaluate(ctx, rec, now)
		result.Fired = append(result.Fired, fired...)
		if err != nil {
			result.Failed++
			s.logger.Warn("station evaluation failed", zap.String("station_id", rec.ID), zap.Error(err))
		}
	}

	s.logger.Info("poll pass complete",
		zap.Int("stations", len(records)),
		zap.Int("fired", len(result.Fired)),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *NotifierService) evaluate(ctx context.Context, rec models.StationRecord, now time.Time) ([]string, error) {
	var (
		fired []string
		errs  []error
	)

	if msg, ok := endingSoon(rec, now, s.window); ok {
		if err := s.deliver(ctx, msg); err != nil {
			errs = append(errs, err)
		} else {
			fired = append(fired, "⚠️ TimeEnding: "+stationName(rec))
		}
	}

	if rec.StatusChanged() {
		sent, err := s.notifyTransition(ctx, rec, now)
		if err != nil {
			errs = append(errs, err)
		} else if sent {
			fired = append(fired, fmt.Sprintf("🔔 StatusChange: %s [%s]", stationName(rec), models.CanonicalStatus(rec.Status)))
		}
	}

	return fired, errors.Join(errs...)
}

// notifyTransition claims the transition with a compare-and-swap on notifiedStatus,
// sends, and rolls the marker back if the send fails so the next poll retries.
func (s *NotifierService) notifyTransition(ctx context.Context, rec models.StationRecord, now time.Time) (bool, error) {
	prev := rec.NotifiedStatus
	next := models.CanonicalStatus(rec.Status)

	if err := s.store.CompareAndSetNotified(ctx, rec.ID, prev, next); err != nil {
		if errors.Is(err, models.ErrStaleRecord) {
			s.logger.Debug("transition already claimed", zap.String("station_id", rec.ID), zap.String("status", next))
			return false, nil
		}
		return false, fmt.Errorf("%w: claim transition: %w", ErrDownstream, err)
	}

	if err := s.deliver(ctx, statusChangeMessage(rec, now)); err != nil {
		// Detached from ctx: a cancelled caller must not strand the advanced marker.
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		if rbErr := s.store.CompareAndSetNotified(rbCtx, rec.ID, next, prev); rbErr != nil {
			s.logger.Error("failed to roll back notified status",
				zap.String("station_id", rec.ID),
				zap.String("status", next),
				zap.Error(rbErr))
		}
		return false, err
	}
	return true, nil
}

// PushRequest is a caller-asserted status for one station.
type PushRequest struct {
	StationID   string `json:"stationId"`
	Status      string `json:"status"`
	User        string `json:"user,omitempty"`
	Duration    *int   `json:"duration,omitempty"`
	BookingTime string `json:"bookingTime,omitempty"`
}

// Push sends the status message for req and advances notifiedStatus unconditionally.
func (s *NotifierService) Push(ctx context.Context, req PushRequest) (models.Message, error) {
	req.StationID = strings.TrimSpace(req.StationID)
	req.Status = strings.TrimSpace(req.Status)
	if req.StationID == "" {
		return models.Message{}, fmt.Errorf("%w: stationId is required", ErrInvalidInput)
	}
	if req.Status == "" {
		return models.Message{}, fmt.Errorf("%w: status is required", ErrInvalidInput)
	}

	rec, err := s.store.Get(ctx, req.StationID)
	if errors.Is(err, models.ErrStationNotFound) {
		return models.Message{}, fmt.Errorf("%w: %s", ErrNotFound, req.StationID)
	}
	if err != nil {
		return models.Message{}, fmt.Errorf("%w: load station: %w", ErrDownstream, err)
	}
	if _, known := models.ParseStatus(req.Status); !known && s.strictStatus {
		return models.Message{}, fmt.Errorf("%w: unrecognized status %q", ErrInvalidInput, req.Status)
	}

	in := messageInput{
		StationName: stationName(rec),
		User:        firstNonEmpty(req.User, rec.User),
		RawStatus:   req.Status,
		Duration:    req.Duration,
		BookingTime: firstNonEmpty(req.BookingTime, rec.BookingTime),
	}
	if in.Duration == nil {
		in.Duration = rec.Duration
	}
	title, text := statusMessage(in)
	msg := models.Message{
		StationID: rec.ID,
		Kind:      models.KindPush,
		Title:     title,
		Text:      text,
		CreatedAt: s.now(),
	}

	if err := s.deliver(ctx, msg); err != nil {
		return models.Message{}, err
	}
	if err := s.store.SetNotified(ctx, rec.ID, models.CanonicalStatus(req.Status)); err != nil {
		return msg, fmt.Errorf("%w: advance notified status: %w", ErrDownstream, err)
	}
	return msg, nil
}

// ResetResult reports a daily reset.
type ResetResult struct {
	Reset   int      `json:"reset"`
	Skipped []string `json:"skipped"`
	Failed  int      `json:"failed"`
}

// ResetDaily returns every unbooked station to the Free baseline. Writes run
// concurrently and are not transactional; one summary message is sent either way.
func (s *NotifierService) ResetDaily(ctx context.Context) (ResetResult, error) {
	result := ResetResult{Skipped: []string{}}

	records, err := s.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: fetch stations: %w", ErrDownstream, err)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.resetConcurrency)

	for _, rec := range records {
		if rec.HasBooking() {
			mu.Lock()
			result.Skipped = append(result.Skipped, stationName(rec))
			mu.Unlock()
			continue
		}
		rec := rec
		g.Go(func() error {
			reset, err := s.store.Reset(ctx, rec.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				s.logger.Warn("station reset failed", zap.String("station_id", rec.ID), zap.Error(err))
				return fmt.Errorf("reset %s: %w", rec.ID, err)
			case reset:
				result.Reset++
			default:
				result.Skipped = append(result.Skipped, stationName(rec))
			}
			return nil
		})
	}
	writeErr := g.Wait()

	sendErr := s.deliver(ctx, dailyResetMessage(result, s.now()))

	s.logger.Info("daily reset complete",
		zap.Int("reset", result.Reset),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", result.Failed))

	if writeErr != nil {
		return result, fmt.Errorf("%w: %d station(s) failed to reset: %w", ErrDownstream, result.Failed, writeErr)
	}
	return result, sendErr
}

// deliver sends through the webhook and then fans out to observers.
func (s *NotifierService) deliver(ctx context.Context, msg models.Message) error {
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: deliver %s message: %w", ErrDownstream, msg.Kind, err)
	}
	for _, o := range s.observers {
		if err := o.Observe(ctx, msg); err != nil {
			s.logger.Warn("observer failed", zap.String("kind", string(msg.Kind)), zap.Error(err))
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
