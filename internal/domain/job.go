package domain

import "time"

// JobState represents the state of a remote extraction job.
// Transitions are strictly forward: Created → Uploaded → Started → Polling →
// {Completed | Failed | TimedOut}. Polling may self-loop; terminal states
// never transition again.
type JobState string

const (
	JobStateCreated   JobState = "created"
	JobStateUploaded  JobState = "uploaded"
	JobStateStarted   JobState = "started"
	JobStatePolling   JobState = "polling"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
)

// Terminal reports whether no further transition is possible from s.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateTimedOut:
		return true
	}
	return false
}

// rank orders states along the forward-only transition chain. Terminal
// states share the final rank.
func (s JobState) rank() int {
	switch s {
	case JobStateCreated:
		return 0
	case JobStateUploaded:
		return 1
	case JobStateStarted:
		return 2
	case JobStatePolling:
		return 3
	case JobStateCompleted, JobStateFailed, JobStateTimedOut:
		return 4
	}
	return -1
}

// RemoteJob is a server-side extraction job identified by an opaque id
// assigned on creation. The id is immutable once set.
type RemoteJob struct {
	ID        string
	State     JobState
	CreatedAt time.Time
}

// NewRemoteJob returns a job in the Created state.
func NewRemoteJob(id string) *RemoteJob {
	return &RemoteJob{
		ID:        id,
		State:     JobStateCreated,
		CreatedAt: time.Now().UTC(),
	}
}

// Advance moves the job to next, refusing backward transitions and any
// transition out of a terminal state. Polling → Polling is the only
// permitted self-loop.
// Parameters:
//   - next: target state.
// Returns:
//   - bool: true if the transition was applied.
func (j *RemoteJob) Advance(next JobState) bool {
	if j.State.Terminal() {
		return false
	}
	if next == JobStatePolling && j.State == JobStatePolling {
		return true
	}
	if next.rank() <= j.State.rank() {
		return false
	}
	j.State = next
	return true
}
