package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/hyperfit/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1:0", t.TempDir())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

func TestHandleCreateJob(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleJobs(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var job Job
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if job.ID == "" {
		t.Error("job ID missing in response")
	}
	if job.Config.Function != "sphere" {
		t.Errorf("Function = %q, want sphere", job.Config.Function)
	}

	waitForJobDone(t, s.jobManager, job.ID)
}

func TestHandleCreateJobDefaults(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(`{"iters": 5, "popSize": 5}`))
	rec := httptest.NewRecorder()
	s.handleJobs(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	var job Job
	json.Unmarshal(rec.Body.Bytes(), &job)
	if job.Config.Function != "sphere" || job.Config.Dims != 2 || job.Config.Optimizer != "pso" {
		t.Errorf("defaults not applied: %+v", job.Config)
	}

	waitForJobDone(t, s.jobManager, job.ID)
}

func TestHandleCreateJobRejectsBadConfig(t *testing.T) {
	s := newTestServer(t)

	cases := []string{
		`not json`,
		`{"function": "no-such-function"}`,
		`{"optimizer": "annealing"}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.handleJobs(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleListJobs(t *testing.T) {
	s := newTestServer(t)
	s.jobManager.CreateJob(testConfig())
	s.jobManager.CreateJob(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil)
	rec := httptest.NewRecorder()
	s.handleJobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var jobs []Job
	if err := json.Unmarshal(rec.Body.Bytes(), &jobs); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("got %d jobs, want 2", len(jobs))
	}
}

func TestHandleJobsMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/jobs", nil)
	rec := httptest.NewRecorder()
	s.handleJobs(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleGetJobStatus(t *testing.T) {
	s := newTestServer(t)
	job := s.jobManager.CreateJob(testConfig())
	s.jobManager.UpdateJob(job.ID, func(j *Job) {
		j.State = StateCompleted
		j.BestCost = 2.5
		j.Iterations = 20
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID, nil)
	rec := httptest.NewRecorder()
	s.handleJobsWithID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var response map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if response["state"] != "completed" {
		t.Errorf("state = %v, want completed", response["state"])
	}
	if response["bestCost"].(float64) != 2.5 {
		t.Errorf("bestCost = %v, want 2.5", response["bestCost"])
	}
}

func TestHandleGetJobStatusMissing(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/nope", nil)
	rec := httptest.NewRecorder()
	s.handleJobsWithID(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleGetJobTrace(t *testing.T) {
	s := newTestServer(t)
	job := s.jobManager.CreateJob(testConfig())

	// No trace yet.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/"+job.ID+"/trace", nil)
	rec := httptest.NewRecorder()
	s.handleJobsWithID(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before any trace", rec.Code)
	}

	tw, err := store.NewTraceWriter(s.dataDir, job.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	tw.Write(store.TraceEntry{Iteration: 0, Cost: 10, Timestamp: time.Now()})
	tw.Write(store.TraceEntry{Iteration: 1, Cost: 5, Timestamp: time.Now()})
	tw.Close()

	rec = httptest.NewRecorder()
	s.handleJobsWithID(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var entries []store.TraceEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(entries) != 2 || entries[1].Cost != 5 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(t)
	s.jobManager.CreateJob(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.handleIndex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "sphere") {
		t.Error("job listing missing from index page")
	}

	// Non-root paths are not swallowed by the index handler.
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec = httptest.NewRecorder()
	s.handleIndex(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORSMiddleware(t *testing.T) {
	s := newTestServer(t)
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/jobs", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("CORS header missing")
	}
}

// waitForJobDone blocks until the background worker leaves the
// pending/running states, so temp dirs are not torn down under it.
func waitForJobDone(t *testing.T, jm *JobManager, jobID string) {
	t.Helper()
	deadline := time.After(30 * time.Second)
	for {
		job, exists := jm.GetJob(jobID)
		if !exists {
			t.Fatal("job vanished")
		}
		switch job.State {
		case StateCompleted, StateFailed, StateCancelled:
			return
		}
		select {
		case <-deadline:
			t.Fatalf("job stuck in state %s", job.State)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
