package workflow

import (
	"time"

	"github.com/google/uuid"
)

// TimeRecord tracks how long a task spent at one stage of a workflow
// run. Records are opened when a stage is entered and closed when it is
// left; the engine never stores them — the caller owns the accumulated
// set and scopes which records belong to which run.
type TimeRecord struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// StageID is the stage the record measures.
	StageID string `json:"stage_id"`

	// SubStageID is set when the task sat at a sub-stage.
	SubStageID string `json:"sub_stage_id,omitempty"`

	// StartedAt is when the stage was entered.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is set once the stage is left; nil while still open.
	Elapsed *time.Duration `json:"elapsed,omitempty"`
}

// Closed reports whether the record has been closed.
func (r TimeRecord) Closed() bool {
	return r.Elapsed != nil
}

// StartRecord opens a time record for a stage entered at now.
func StartRecord(stageID, subStageID string, now time.Time) TimeRecord {
	return TimeRecord{
		ID:         uuid.NewString(),
		StageID:    stageID,
		SubStageID: subStageID,
		StartedAt:  now,
	}
}

// CloseRecord closes a record at now, setting its elapsed duration.
// Closing an already closed record returns it unchanged.
func CloseRecord(r TimeRecord, now time.Time) TimeRecord {
	if r.Closed() {
		return r
	}
	elapsed := now.Sub(r.StartedAt)
	r.Elapsed = &elapsed
	return r
}

// AggregateElapsed sums the elapsed durations of the given records,
// counting still-open records as zero. The sum is pure and
// order-independent; the caller supplies the correct, scope-limited
// record set (typically every record of the task tree under the same
// workflow root, enumerated by the document collaborator).
func AggregateElapsed(records []TimeRecord) time.Duration {
	var total time.Duration
	for _, r := range records {
		if r.Elapsed != nil {
			total += *r.Elapsed
		}
	}
	return total
}
