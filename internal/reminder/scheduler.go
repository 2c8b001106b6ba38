// Package reminder decides which policies get a renewal reminder today and
// records each decision in the reminder log.
//
// The log is keyed by (policy, calendar day), so a second run on the same day
// finds the entry and skips it. Delivery is not part of a run: pending
// entries are handed to a Publisher and the dispatcher takes it from there.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/pkg/logger"
	"github.com/nimasrn/policy-desk/pkg/prom"
)

var ErrNoLocation = errors.New("scheduler location is required")

type SettingsLister interface {
	ListAutoEnabled(ctx context.Context) ([]model.ReminderSettings, error)
}

type PolicyLister interface {
	ListNotExpired(ctx context.Context, ownerID string, day time.Time) ([]*model.Policy, error)
}

// LogStore is the dedup log. Create returns false when the (policy, day)
// entry already exists. FindUnqueued returns nil when the day's entry is not
// pending or has already been queued.
type LogStore interface {
	Exists(ctx context.Context, policyID int64, day string) (bool, error)
	Create(ctx context.Context, log *model.ReminderLog) (bool, error)
	FindUnqueued(ctx context.Context, policyID int64, day string) (*model.ReminderLog, error)
	MarkQueued(ctx context.Context, id int64, queuedAt time.Time) error
}

type Publisher interface {
	PublishReminder(ctx context.Context, job model.ReminderJob) error
}

// RunError is a failure recorded during a run. PolicyID is zero for
// owner-level failures.
type RunError struct {
	OwnerID  string `json:"ownerId"`
	PolicyID int64  `json:"policyId,omitempty"`
	Message  string `json:"message"`
}

type RunSummary struct {
	Date      string     `json:"date"`
	Owners    int        `json:"owners"`
	Scanned   int        `json:"scanned"`
	Logged    int        `json:"logged"`
	Failed    int        `json:"failed"`
	Skipped   int        `json:"skipped"`
	Published int        `json:"published"`
	Errors    []RunError `json:"errors"`
}

type Scheduler struct {
	settings  SettingsLister
	policies  PolicyLister
	logs      LogStore
	publisher Publisher
	location  *time.Location
	now       func() time.Time

	defaultDays []int
}

func NewScheduler(settings SettingsLister, policies PolicyLister, logs LogStore, location *time.Location) (*Scheduler, error) {
	if location == nil {
		return nil, ErrNoLocation
	}
	return &Scheduler{
		settings: settings,
		policies: policies,
		logs:     logs,
		location: location,
		now:      time.Now,

		defaultDays: model.DefaultReminderDays,
	}, nil
}

// WithDefaultDays sets the offsets used by owners who have not chosen any.
func (s *Scheduler) WithDefaultDays(days []int) *Scheduler {
	if len(days) > 0 {
		s.defaultDays = days
	}
	return s
}

// WithPublisher enables queueing of pending reminders.
func (s *Scheduler) WithPublisher(p Publisher) *Scheduler {
	s.publisher = p
	return s
}

// WithClock replaces the wall clock, mostly for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run processes every owner with auto reminders enabled. Owner and policy
// failures are recorded in the summary and the run moves on; an error is
// returned only when the owner list itself cannot be read.
func (s *Scheduler) Run(ctx context.Context) (*RunSummary, error) {
	today := dates.Today(s.now(), s.location)
	summary := &RunSummary{
		Date:   dates.ISO(today),
		Errors: []RunError{},
	}
	log := logger.GetLogger().With("run_date", summary.Date)

	prom.IncReminderRun()

	owners, err := s.settings.ListAutoEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminder settings: %w", err)
	}

	for _, settings := range owners {
		summary.Owners++
		s.runOwner(ctx, log, settings, today, summary)
	}

	log.Info("reminder run finished",
		"owners", summary.Owners,
		"scanned", summary.Scanned,
		"logged", summary.Logged,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"published", summary.Published)

	return summary, nil
}

func (s *Scheduler) runOwner(ctx context.Context, log *logger.ZapLogger, settings model.ReminderSettings, today time.Time, summary *RunSummary) {
	policies, err := s.policies.ListNotExpired(ctx, settings.OwnerID, today)
	if err != nil {
		log.Error("list owner policies", "owner_id", settings.OwnerID, "error", err)
		summary.Errors = append(summary.Errors, RunError{
			OwnerID: settings.OwnerID,
			Message: err.Error(),
		})
		return
	}

	offsets := settings.ReminderDays
	if len(offsets) == 0 {
		offsets = s.defaultDays
	}
	for _, p := range policies {
		summary.Scanned++

		daysToExpiry := dates.DaysBetween(today, p.ExpiryDate)
		if !slices.Contains(offsets, daysToExpiry) {
			continue
		}

		if err := s.remind(ctx, log, p, today, daysToExpiry, summary); err != nil {
			summary.Failed++
			prom.IncReminderLogged("error")
			log.Error("write reminder log", "owner_id", p.OwnerID, "policy_id", p.ID, "error", err)
			summary.Errors = append(summary.Errors, RunError{
				OwnerID:  p.OwnerID,
				PolicyID: p.ID,
				Message:  err.Error(),
			})
		}
	}
}

func (s *Scheduler) remind(ctx context.Context, log *logger.ZapLogger, p *model.Policy, today time.Time, daysToExpiry int, summary *RunSummary) error {
	day := dates.ISO(today)

	exists, err := s.logs.Exists(ctx, p.ID, day)
	if err != nil {
		return fmt.Errorf("check reminder log: %w", err)
	}
	if exists {
		summary.Skipped++
		prom.IncReminderLogged("skipped")
		s.requeue(ctx, log, p, day, summary)
		return nil
	}

	entry := &model.ReminderLog{
		PolicyID:     p.ID,
		OwnerID:      p.OwnerID,
		Message:      RenderMessage(p, daysToExpiry),
		Status:       model.ReminderNoContact,
		ReminderDate: day,
		DaysToExpiry: daysToExpiry,
	}
	if p.HasContact() {
		entry.Status = model.ReminderPending
	}

	created, err := s.logs.Create(ctx, entry)
	if err != nil {
		return fmt.Errorf("create reminder log: %w", err)
	}
	if !created {
		// another run inserted the same (policy, day) between Exists and Create
		summary.Skipped++
		prom.IncReminderLogged("skipped")
		return nil
	}

	summary.Logged++
	prom.IncReminderLogged(string(entry.Status))

	if entry.Status == model.ReminderPending {
		s.publish(ctx, log, p, entry, summary)
	}
	return nil
}

// requeue publishes a same-day pending entry whose earlier publish failed.
func (s *Scheduler) requeue(ctx context.Context, log *logger.ZapLogger, p *model.Policy, day string, summary *RunSummary) {
	if s.publisher == nil {
		return
	}
	entry, err := s.logs.FindUnqueued(ctx, p.ID, day)
	if err != nil {
		log.Warn("find unqueued reminder", "policy_id", p.ID, "error", err)
		return
	}
	if entry == nil {
		return
	}
	s.publish(ctx, log, p, entry, summary)
}

func (s *Scheduler) publish(ctx context.Context, log *logger.ZapLogger, p *model.Policy, entry *model.ReminderLog, summary *RunSummary) {
	if s.publisher == nil {
		return
	}
	job := model.ReminderJob{
		LogID:         entry.ID,
		PolicyID:      p.ID,
		OwnerID:       p.OwnerID,
		ContactNumber: p.ContactNumber,
		Message:       entry.Message,
		ReminderDate:  entry.ReminderDate,
	}
	if err := s.publisher.PublishReminder(ctx, job); err != nil {
		log.Warn("publish reminder", "policy_id", p.ID, "log_id", entry.ID, "error", err)
		return
	}
	summary.Published++

	// a failed mark only costs a duplicate publish, which the dispatcher drops
	if err := s.logs.MarkQueued(ctx, entry.ID, s.now()); err != nil {
		log.Warn("mark reminder queued", "log_id", entry.ID, "error", err)
	}
}
