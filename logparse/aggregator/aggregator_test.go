// SPDX-License-Identifier: MIT

package aggregator

import (
	"reflect"
	"sync"
	"testing"

	"github.com/kolapsis/logparse/logparse/parser"
)

func record(offset int64, fields map[string]any) *parser.Record {
	return &parser.Record{Offset: offset, Fields: fields}
}

func TestObserve(t *testing.T) {
	a := New()

	a.Observe(record(0, nil))
	a.Observe(&parser.Record{Offset: 90, StackTraceLines: 3, Truncated: true})
	a.Observe(record(40, nil))

	s := a.Peek()
	if s.Records != 3 {
		t.Errorf("Records = %d, want 3", s.Records)
	}
	if s.StackTraceLines != 3 {
		t.Errorf("StackTraceLines = %d, want 3", s.StackTraceLines)
	}
	if s.Truncated != 1 {
		t.Errorf("Truncated = %d, want 1", s.Truncated)
	}
	if s.LastOffset != 90 {
		t.Errorf("LastOffset = %d, want 90", s.LastOffset)
	}
}

func TestErrorsAndFiltered(t *testing.T) {
	a := New()

	a.ParseError()
	a.ParseError()
	a.Filtered()

	s := a.Peek()
	if s.ParseErrors != 2 || s.Filtered != 1 {
		t.Errorf("ParseErrors = %d, Filtered = %d; want 2, 1", s.ParseErrors, s.Filtered)
	}
}

func TestDistinct(t *testing.T) {
	a := New(WithDistinct("clientip", "/http/verb"))

	a.Observe(record(0, map[string]any{"clientip": "10.0.0.1", "http": map[string]any{"verb": "GET"}}))
	a.Observe(record(1, map[string]any{"clientip": "10.0.0.2", "http": map[string]any{"verb": "GET"}}))
	a.Observe(record(2, map[string]any{"clientip": "10.0.0.1"})) // Duplicate
	a.Observe(record(3, map[string]any{"http": map[string]any{"verb": "POST"}}))

	s := a.Peek()
	want := map[string]int{"clientip": 2, "/http/verb": 2}
	if !reflect.DeepEqual(s.Distinct, want) {
		t.Errorf("Distinct = %v, want %v", s.Distinct, want)
	}
}

func TestSum(t *testing.T) {
	a := New(WithSum("bytes"))

	a.Observe(record(0, map[string]any{"bytes": "100"}))
	a.Observe(record(1, map[string]any{"bytes": "250.5"}))
	a.Observe(record(2, map[string]any{"bytes": "-"}))  // Not a number
	a.Observe(record(3, map[string]any{"bytes": true})) // Not a number
	a.Observe(record(4, map[string]any{"bytes": 49.5}))

	s := a.Peek()
	if v := s.Sums["bytes"]; v != 400 {
		t.Errorf("Sums[bytes] = %v, want 400", v)
	}
}

func TestSnapshotReset(t *testing.T) {
	a := New(WithDistinct("level"), WithSum("bytes"))

	a.Observe(record(10, map[string]any{"level": "INFO", "bytes": "5"}))
	a.ParseError()
	a.Filtered()

	s := a.Snapshot()
	if s.Records != 1 || s.ParseErrors != 1 || s.Filtered != 1 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Distinct["level"] != 1 || s.Sums["bytes"] != 5 {
		t.Errorf("snapshot tracked = %v %v", s.Distinct, s.Sums)
	}

	s = a.Peek()
	if s.Records != 0 || s.ParseErrors != 0 || s.Filtered != 0 {
		t.Errorf("after snapshot = %+v", s)
	}
	if s.Distinct["level"] != 0 || s.Sums["bytes"] != 0 {
		t.Errorf("after snapshot tracked = %v %v", s.Distinct, s.Sums)
	}
	// LastOffset survives a snapshot.
	if s.LastOffset != 10 {
		t.Errorf("after snapshot LastOffset = %d, want 10", s.LastOffset)
	}
}

func TestNoTracking(t *testing.T) {
	a := New()
	a.Observe(record(0, map[string]any{"level": "INFO"}))

	s := a.Peek()
	if s.Distinct != nil || s.Sums != nil {
		t.Errorf("expected no tracked fields, got %v %v", s.Distinct, s.Sums)
	}
}

func TestConcurrentAccess(t *testing.T) {
	a := New(WithDistinct("user"), WithSum("bytes"))

	var wg sync.WaitGroup
	numGoroutines := 100
	opsPerGoroutine := 1000

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerGoroutine; j++ {
				a.Observe(record(int64(j), map[string]any{
					"user":  string(rune('A' + id%10)),
					"bytes": 1,
				}))
				a.ParseError()
			}
		}(i)
	}

	wg.Wait()

	s := a.Peek()
	expected := int64(numGoroutines * opsPerGoroutine)
	if s.Records != expected {
		t.Errorf("Records = %d, want %d", s.Records, expected)
	}
	if s.ParseErrors != expected {
		t.Errorf("ParseErrors = %d, want %d", s.ParseErrors, expected)
	}
	if s.Sums["bytes"] != float64(expected) {
		t.Errorf("Sums[bytes] = %v, want %d", s.Sums["bytes"], expected)
	}
	if s.Distinct["user"] != 10 {
		t.Errorf("Distinct[user] = %d, want 10", s.Distinct["user"])
	}
}

func TestTrackedFields(t *testing.T) {
	a := New(WithSum("bytes", "time_taken"), WithDistinct("clientip", "bytes"))

	want := []string{"bytes", "clientip", "time_taken"}
	if got := a.TrackedFields(); !reflect.DeepEqual(got, want) {
		t.Errorf("TrackedFields() = %v, want %v", got, want)
	}
}
