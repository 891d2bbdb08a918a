// Package scheduler runs the periodic reminder scan.
//
// The scan fires on a fixed cadence and looks for non-terminal bookings
// whose start time has entered one of two lead windows: roughly 24 hours
// out and roughly 1 hour out. Each window has its own sent flag on the
// booking row, so a guest receives at most one reminder per window while
// a scan that crashes mid-batch simply redelivers on the next tick
// (dispatch first, flag after).
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/filin-lounge/booking-backend/internal/config"
	"github.com/filin-lounge/booking-backend/internal/notify"
	"github.com/filin-lounge/booking-backend/internal/repo"
)

var (
	// remindersSent counts dispatched reminders by lead window.
	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reminders_sent_total",
			Help: "Total number of booking reminders dispatched.",
		},
		[]string{"window"},
	)

	// remindersFailed counts reminder deliveries that errored.
	remindersFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_reminders_failed_total",
			Help: "Total number of booking reminder deliveries that failed.",
		},
		[]string{"window"},
	)

	// scanDuration records the wall time of a full reminder scan.
	scanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "booking_reminder_scan_duration_seconds",
			Help:    "Duration of reminder scans in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(remindersSent, remindersFailed, scanDuration)
}

// reminderWindow ties a flag column to its lead time and window width.
type reminderWindow struct {
	label  string
	column string
	lead   time.Duration
	width  time.Duration
}

// ReminderScanner scans for due reminders and dispatches them through a
// Notifier. One instance owns the gocron scheduler; Start and Stop
// bracket its lifetime.
type ReminderScanner struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Logger   zerolog.Logger

	interval time.Duration
	windows  []reminderWindow

	sched gocron.Scheduler
}

// NewReminderScanner builds a scanner from the reminder configuration.
func NewReminderScanner(db *gorm.DB, n notify.Notifier, cfg config.ReminderConfig, logger zerolog.Logger) *ReminderScanner {
	return &ReminderScanner{
		DB:       db,
		Notifier: n,
		Logger:   logger,
		interval: cfg.Interval,
		windows: []reminderWindow{
			{label: "day", column: repo.ReminderDayColumn, lead: cfg.DayLead, width: cfg.DayWindow},
			{label: "hour", column: repo.ReminderHourColumn, lead: cfg.HourLead, width: cfg.HourWindow},
		},
	}
}

// Start schedules the periodic scan and begins running it. The first
// scan fires immediately so reminders are not delayed by one cadence
// after a restart.
func (s *ReminderScanner) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("scheduler: init: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			s.Scan(ctx, time.Now().UTC())
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("scheduler: reminder job: %w", err)
	}
	s.sched = sched
	sched.Start()
	s.Logger.Info().Dur("interval", s.interval).Msg("reminder scanner started")
	return nil
}

// Stop shuts the scheduler down, waiting for an in-flight scan.
func (s *ReminderScanner) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}

// Scan runs one pass over both lead windows as of now. It is exported
// so it can be driven directly in tests and from CLI maintenance.
func (s *ReminderScanner) Scan(ctx context.Context, now time.Time) {
	start := time.Now()
	defer func() {
		scanDuration.Observe(time.Since(start).Seconds())
	}()

	for _, w := range s.windows {
		s.scanWindow(ctx, now, w)
	}
}

func (s *ReminderScanner) scanWindow(ctx context.Context, now time.Time, w reminderWindow) {
	from := now.Add(w.lead)
	to := from.Add(w.width)

	due, err := repo.ListDueReminders(ctx, s.DB, w.column, from, to)
	if err != nil {
		s.Logger.Error().Err(err).Str("window", w.label).Msg("reminder scan query failed")
		return
	}
	for _, b := range due {
		if b.IsStaffBooking || b.Client.ChatID == 0 {
			// Staff placeholders have no reachable guest behind them.
			if err := repo.SetReminderSent(ctx, s.DB, b.ID, w.column); err != nil {
				s.Logger.Error().Err(err).Uint("booking_id", b.ID).Msg("failed to flag reminder")
			}
			continue
		}
		msg := reminderText(w.label, b.BookingAt, b.TableNo)
		if err := s.Notifier.Notify(ctx, b.Client.ChatID, msg); err != nil {
			remindersFailed.WithLabelValues(w.label).Inc()
			s.Logger.Warn().
				Err(err).
				Uint("booking_id", b.ID).
				Int64("chat_id", b.Client.ChatID).
				Str("window", w.label).
				Msg("reminder delivery failed")
		} else {
			remindersSent.WithLabelValues(w.label).Inc()
		}
		// Flag after dispatch: a crash between the two redelivers next
		// scan, which is the accepted at-least-once behavior.
		if err := repo.SetReminderSent(ctx, s.DB, b.ID, w.column); err != nil {
			s.Logger.Error().Err(err).Uint("booking_id", b.ID).Msg("failed to flag reminder")
		}
	}
	if len(due) > 0 {
		s.Logger.Info().Str("window", w.label).Int("count", len(due)).Msg("reminders dispatched")
	}
}

func reminderText(window string, at time.Time, tableNo int) string {
	when := at.Format("02.01.2006 15:04")
	if window == "day" {
		return fmt.Sprintf("Reminder: your table %d is booked for tomorrow, %s. Reply /cancel if your plans changed.", tableNo, when)
	}
	return fmt.Sprintf("Reminder: your table %d is booked for %s, see you soon!", tableNo, when)
}
