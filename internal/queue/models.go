package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a brew moving through the pipeline.
type Status string

const (
	StatusPending      Status = "pending"
	StatusProfiling    Status = "profiling"
	StatusProfiled     Status = "profiled"
	StatusRecommending Status = "recommending"
	StatusRecommended  Status = "recommended"
	StatusBlending     Status = "blending"
	StatusBlended      Status = "blended"
	StatusCompiling    Status = "compiling"
	StatusCompiled     Status = "compiled"
	StatusDispatching  Status = "dispatching"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// CancelledReason is the error message recorded when a brew is aborted on
// caller request before dispatch.
const CancelledReason = "Cancelled by caller before dispatch"

// DaemonStopReason is the error message set when brews are failed due to
// daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusProfiling,
	StatusProfiled,
	StatusRecommending,
	StatusRecommended,
	StatusBlending,
	StatusBlended,
	StatusCompiling,
	StatusCompiled,
	StatusDispatching,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusProfiling:    {},
	StatusRecommending: {},
	StatusBlending:     {},
	StatusCompiling:    {},
	StatusDispatching:  {},
}

// stageRollbacks maps an in-flight processing status back to the status the
// stage started from, used when reclaiming brews stuck by a crash.
var stageRollbacks = map[Status]Status{
	StatusProfiling:    StatusPending,
	StatusRecommending: StatusProfiled,
	StatusBlending:     StatusRecommended,
	StatusCompiling:    StatusBlended,
	StatusDispatching:  StatusCompiled,
}

// ServingSize is the requested cup size.
type ServingSize string

const (
	ServingSmall  ServingSize = "small"
	ServingMedium ServingSize = "medium"
	ServingLarge  ServingSize = "large"
)

// ParseServingSize normalizes a serving size string. Unknown values fall back
// to medium, matching the machine's default cup.
func ParseServingSize(value string) ServingSize {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "small", "s", "3oz":
		return ServingSmall
	case "large", "l", "10oz":
		return ServingLarge
	default:
		return ServingMedium
	}
}

// Brew links a brew request, the parameter sets derived for it, the compiled
// machine program, and the outcome.
type Brew struct {
	ID              int64
	UserID          string
	RequestText     string
	ServingSize     ServingSize
	Status          Status
	ProfileJSON     string
	CandidateJSON   string
	FinalJSON       string
	ProgramJSON     string
	ErrorMessage    string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DispatchedAt    *time.Time
}

// FeedbackRecord is one immutable rating attached to a past brew.
type FeedbackRecord struct {
	ID        int64
	BrewID    int64
	Rating    int
	Notes     string
	CreatedAt time.Time
}

// RatedBrew pairs a completed brew's final parameters with its rating, in the
// shape the feedback aggregator consumes.
type RatedBrew struct {
	BrewID    int64
	FinalJSON string
	Rating    int
	Notes     string
	RatedAt   time.Time
}

// HealthSummary describes aggregated brew counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight stage.
func (b Brew) IsProcessing() bool {
	_, ok := processingStatuses[b.Status]
	return ok
}

// IsTerminal reports whether the brew has finished, successfully or not.
func (b Brew) IsTerminal() bool {
	return b.Status == StatusCompleted || b.Status == StatusFailed
}

// SetFailed marks the brew as failed with the given error message.
func (b *Brew) SetFailed(message string) {
	b.Status = StatusFailed
	b.ErrorMessage = message
}

// IsProcessingStatus reports whether a status reflects an in-flight stage.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}
