package store

import (
	"errors"
	"io"
	"testing"
	"time"
)

func writeEntries(t *testing.T, baseDir, jobID string, costs ...float64) {
	t.Helper()
	tw, err := NewTraceWriter(baseDir, jobID, false)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}
	for i, cost := range costs {
		entry := TraceEntry{Iteration: i, Cost: cost, Timestamp: time.Now()}
		if err := tw.Write(entry); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestTraceWriteRead(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, "job-1", 100, 50, 25, 12.5)

	tr, err := NewTraceReader(dir, "job-1")
	if err != nil {
		t.Fatalf("NewTraceReader: %v", err)
	}
	defer tr.Close()

	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	if entries[0].Cost != 100 || entries[3].Cost != 12.5 {
		t.Errorf("entries out of order: %+v", entries)
	}
	for i, e := range entries {
		if e.Iteration != i {
			t.Errorf("entry %d has iteration %d", i, e.Iteration)
		}
	}
}

func TestTraceReadSequential(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, "job-1", 10, 5)

	tr, err := NewTraceReader(dir, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	first, err := tr.Read()
	if err != nil || first.Cost != 10 {
		t.Fatalf("first = %+v, err = %v", first, err)
	}
	second, err := tr.Read()
	if err != nil || second.Cost != 5 {
		t.Fatalf("second = %+v, err = %v", second, err)
	}
	if _, err := tr.Read(); err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestTraceAppendMode(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, "job-1", 100)

	// A resumed run appends to the existing history.
	tw, err := NewTraceWriter(dir, "job-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := tw.Write(TraceEntry{Iteration: 1, Cost: 50, Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTraceReader(dir, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2 after append", len(entries))
	}
}

func TestTraceCarriesNorm(t *testing.T) {
	dir := t.TempDir()
	tw, err := NewTraceWriter(dir, "job-1", false)
	if err != nil {
		t.Fatal(err)
	}
	entry := TraceEntry{Iteration: 0, Cost: 1, Timestamp: time.Now(), Norm: []float64{0.5, 0.25}}
	if err := tw.Write(entry); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	tr, err := NewTraceReader(dir, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	entries, err := tr.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || len(entries[0].Norm) != 2 || entries[0].Norm[1] != 0.25 {
		t.Errorf("norm not preserved: %+v", entries)
	}
}

func TestTraceReaderMissing(t *testing.T) {
	_, err := NewTraceReader(t.TempDir(), "no-such-job")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteTrace(t *testing.T) {
	dir := t.TempDir()
	writeEntries(t, dir, "job-1", 1)

	if err := DeleteTrace(dir, "job-1"); err != nil {
		t.Fatalf("DeleteTrace: %v", err)
	}
	if _, err := NewTraceReader(dir, "job-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("trace still readable after delete: %v", err)
	}
	// Deleting an absent trace is not an error.
	if err := DeleteTrace(dir, "job-1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
