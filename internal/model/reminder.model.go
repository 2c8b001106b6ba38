package model

import (
	"strconv"
	"time"
)

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderNoContact ReminderStatus = "no_contact"
	ReminderSent      ReminderStatus = "sent"
	ReminderFailed    ReminderStatus = "failed"
)

// ReminderLog records one reminder for one policy on one calendar day.
// (PolicyID, ReminderDate) is unique; ReminderDate is yyyy-MM-dd.
type ReminderLog struct {
	ID           int64
	PolicyID     int64
	OwnerID      string
	Message      string
	Status       ReminderStatus
	ReminderDate string
	DaysToExpiry int
	SentAt       time.Time
	QueuedAt     time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReminderSettings is an owner's reminder preference.
type ReminderSettings struct {
	OwnerID       string
	AutoReminders bool
	ReminderDays  []int
}

// DefaultReminderDays applies when an owner has not chosen offsets.
var DefaultReminderDays = []int{7, 15, 30}

// Days returns the configured offsets, or the defaults when none are set.
func (s ReminderSettings) Days() []int {
	if len(s.ReminderDays) == 0 {
		return DefaultReminderDays
	}
	return s.ReminderDays
}

// ReminderJob is the queue payload the dispatcher consumes.
type ReminderJob struct {
	LogID         int64  `json:"log_id"`
	PolicyID      int64  `json:"policy_id"`
	OwnerID       string `json:"owner_id"`
	ContactNumber string `json:"contact_number"`
	Message       string `json:"message"`
	ReminderDate  string `json:"reminder_date"`
}

// IdempotencyKey identifies the job across redeliveries.
func (j ReminderJob) IdempotencyKey() string {
	return "reminder:" + j.ReminderDate + ":" + strconv.FormatInt(j.PolicyID, 10)
}
