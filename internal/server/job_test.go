package server

import (
	"testing"
	"time"
)

func testConfig() JobConfig {
	return JobConfig{
		Function:  "sphere",
		Dims:      2,
		Optimizer: "pso",
		Iters:     20,
		PopSize:   10,
		Seed:      42,
	}
}

func TestCreateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testConfig())

	if job.ID == "" {
		t.Error("Expected non-empty job ID")
	}
	if job.State != StatePending {
		t.Errorf("State = %s, want pending", job.State)
	}
	if job.Config.Function != "sphere" {
		t.Errorf("Function = %q, want sphere", job.Config.Function)
	}

	got, exists := jm.GetJob(job.ID)
	if !exists {
		t.Fatal("Job not retrievable after create")
	}
	if got.ID != job.ID {
		t.Errorf("GetJob returned %s, want %s", got.ID, job.ID)
	}
}

func TestGetJobMissing(t *testing.T) {
	jm := NewJobManager()
	if _, exists := jm.GetJob("nope"); exists {
		t.Error("Expected missing job")
	}
}

func TestUpdateJob(t *testing.T) {
	jm := NewJobManager()
	job := jm.CreateJob(testConfig())

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Iterations = 5
		j.BestCost = 1.25
	})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	got, _ := jm.GetJob(job.ID)
	if got.State != StateRunning || got.Iterations != 5 || got.BestCost != 1.25 {
		t.Errorf("update not applied: %+v", got)
	}

	if err := jm.UpdateJob("nope", func(j *Job) {}); err == nil {
		t.Error("Expected error updating missing job")
	}
}

func TestListAndRunningJobs(t *testing.T) {
	jm := NewJobManager()
	a := jm.CreateJob(testConfig())
	b := jm.CreateJob(testConfig())

	if len(jm.ListJobs()) != 2 {
		t.Errorf("ListJobs = %d, want 2", len(jm.ListJobs()))
	}

	jm.UpdateJob(a.ID, func(j *Job) { j.State = StateRunning })
	jm.UpdateJob(b.ID, func(j *Job) { j.State = StateCompleted })

	running := jm.GetRunningJobs()
	if len(running) != 1 || running[0].ID != a.ID {
		t.Errorf("GetRunningJobs = %v", running)
	}
}

func TestBroadcasterDeliversEvents(t *testing.T) {
	eb := NewEventBroadcaster()
	ch := eb.Subscribe("job-1")

	eb.Broadcast(ProgressEvent{JobID: "job-1", Iterations: 3, BestCost: 0.5, Timestamp: time.Now()})

	select {
	case event := <-ch:
		if event.Iterations != 3 {
			t.Errorf("Iterations = %d, want 3", event.Iterations)
		}
	case <-time.After(time.Second):
		t.Fatal("No event received")
	}

	eb.Unsubscribe("job-1", ch)
	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after unsubscribe")
	}
}

func TestBroadcasterReplaysLastEvent(t *testing.T) {
	eb := NewEventBroadcaster()
	eb.Broadcast(ProgressEvent{JobID: "job-1", Iterations: 7, Timestamp: time.Now()})

	// A client connecting late still sees the latest state.
	ch := eb.Subscribe("job-1")
	select {
	case event := <-ch:
		if event.Iterations != 7 {
			t.Errorf("Iterations = %d, want 7", event.Iterations)
		}
	case <-time.After(time.Second):
		t.Fatal("Last event not replayed to new subscriber")
	}
	eb.Unsubscribe("job-1", ch)
}

func TestBroadcasterCleanupJob(t *testing.T) {
	eb := NewEventBroadcaster()
	ch := eb.Subscribe("job-1")
	eb.CleanupJob("job-1")

	if _, ok := <-ch; ok {
		t.Error("Channel should be closed after cleanup")
	}
}
