package api

import (
	"time"

	"barista/internal/queue"
)

// BrewReceipt confirms a queued brew request.
type BrewReceipt struct {
	BrewID      int64
	UserID      string
	ServingSize queue.ServingSize
	Status      queue.Status
	CreatedAt   time.Time
}

// BrewOutcome is the terminal result of a brew: the parameters that were
// used, the program that ran, or the reason nothing was brewed.
type BrewOutcome struct {
	BrewID       int64
	UserID       string
	Status       queue.Status
	FinalJSON    string
	ProgramJSON  string
	ErrorMessage string
	DispatchedAt *time.Time
}

// FeedbackAck confirms a stored rating and whether the user's taste profile
// was rebuilt from it.
type FeedbackAck struct {
	FeedbackID     int64
	BrewID         int64
	Rating         int
	ProfileSamples int
	ProfileHints   int
}

// QueueRow is one brew in a queue listing.
type QueueRow struct {
	BrewID      int64
	UserID      string
	RequestText string
	ServingSize queue.ServingSize
	Status      queue.Status
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
