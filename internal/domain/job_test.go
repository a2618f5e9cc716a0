package domain

import "testing"

func TestRemoteJobForwardTransitions(t *testing.T) {
	job := NewRemoteJob("job-1")

	steps := []JobState{JobStateUploaded, JobStateStarted, JobStatePolling, JobStateCompleted}
	for _, next := range steps {
		if !job.Advance(next) {
			t.Fatalf("expected transition %s -> %s to be allowed", job.State, next)
		}
		if job.State != next {
			t.Fatalf("expected state %s, got %s", next, job.State)
		}
	}
}

func TestRemoteJobRejectsBackwardTransitions(t *testing.T) {
	job := NewRemoteJob("job-1")
	job.Advance(JobStateUploaded)
	job.Advance(JobStateStarted)

	if job.Advance(JobStateUploaded) {
		t.Error("backward transition started -> uploaded should be rejected")
	}
	if job.State != JobStateStarted {
		t.Errorf("state should be unchanged after rejected transition, got %s", job.State)
	}
}

func TestRemoteJobPollingSelfLoop(t *testing.T) {
	job := NewRemoteJob("job-1")
	job.Advance(JobStateUploaded)
	job.Advance(JobStateStarted)
	job.Advance(JobStatePolling)

	if !job.Advance(JobStatePolling) {
		t.Error("polling self-loop should be allowed")
	}
	if !job.Advance(JobStateTimedOut) {
		t.Error("polling -> timed_out should be allowed")
	}
}

func TestRemoteJobTerminalStatesAreFinal(t *testing.T) {
	terminals := []JobState{JobStateCompleted, JobStateFailed, JobStateTimedOut}
	for _, terminal := range terminals {
		t.Run(string(terminal), func(t *testing.T) {
			job := NewRemoteJob("job-1")
			job.Advance(JobStateUploaded)
			job.Advance(JobStateStarted)
			job.Advance(JobStatePolling)
			if !job.Advance(terminal) {
				t.Fatalf("polling -> %s should be allowed", terminal)
			}
			if !terminal.Terminal() {
				t.Errorf("%s should be terminal", terminal)
			}
			if job.Advance(JobStateCompleted) || job.Advance(JobStatePolling) {
				t.Errorf("no transition out of terminal state %s should be allowed", terminal)
			}
		})
	}
}

func TestRemoteJobSkipsAreForwardOnly(t *testing.T) {
	// Jumping ahead is still forward and allowed; the orchestrator only
	// uses adjacent steps but the invariant is direction, not adjacency.
	job := NewRemoteJob("job-1")
	if !job.Advance(JobStateFailed) {
		t.Error("created -> failed should be allowed as a forward transition")
	}
}
