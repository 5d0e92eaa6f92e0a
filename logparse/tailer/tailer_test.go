// SPDX-License-Identifier: MIT

package tailer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kolapsis/logparse/logparse/stream"
)

func collect(handler *[]string) LineHandler {
	return func(line stream.Line) {
		*handler = append(*handler, line.Text)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	content := "line1\nline2\nline3\nline4\nline5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var lines []string
	count, err := ProcessFile(path, collect(&lines), 0)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}

	if count != 5 {
		t.Errorf("ProcessFile() count = %d, want 5", count)
	}

	expected := []string{"line1", "line2", "line3", "line4", "line5"}
	for i, exp := range expected {
		if lines[i] != exp {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], exp)
		}
	}
}

func TestProcessFile_WithLimit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	content := "line1\nline2\nline3\nline4\nline5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var lines []string
	count, err := ProcessFile(path, collect(&lines), 3)
	if err != nil {
		t.Fatalf("ProcessFile() error = %v", err)
	}

	if count != 3 || len(lines) != 3 {
		t.Errorf("ProcessFile() count = %d, lines = %d; want 3, 3", count, len(lines))
	}
}

func TestProcessFile_NonExistent(t *testing.T) {
	_, err := ProcessFile("/nonexistent/file.log", func(stream.Line) {}, 0)
	if err == nil {
		t.Error("ProcessFile() should return error for non-existent file")
	}
}

func TestProcessReader_Offsets(t *testing.T) {
	content := "alpha\r\nbeta\ngamma"

	var offsets []int64
	count, err := ProcessReader(strings.NewReader(content), func(line stream.Line) {
		offsets = append(offsets, line.Offset)
	}, 0)
	if err != nil {
		t.Fatalf("ProcessReader() error = %v", err)
	}

	if count != 3 {
		t.Errorf("ProcessReader() count = %d, want 3", count)
	}

	expected := []int64{0, 7, 12}
	for i, exp := range expected {
		if offsets[i] != exp {
			t.Errorf("offsets[%d] = %d, want %d", i, offsets[i], exp)
		}
	}
}

func TestProcessReader_MaxLineLength(t *testing.T) {
	longLine := strings.Repeat("x", 100*1024)
	content := longLine + "\nshort line\n"

	var lines []stream.Line
	count, err := ProcessReader(strings.NewReader(content), func(line stream.Line) {
		lines = append(lines, line)
	}, 0, stream.WithMaxLineLength(1024))
	if err != nil {
		t.Fatalf("ProcessReader() error = %v", err)
	}

	if count != 2 {
		t.Errorf("ProcessReader() count = %d, want 2", count)
	}
	if len(lines[0].Text) != 1024 || !lines[0].Truncated {
		t.Errorf("lines[0] len = %d, truncated = %v", len(lines[0].Text), lines[0].Truncated)
	}
	if lines[1].Text != "short line" || lines[1].Truncated {
		t.Errorf("lines[1] = %+v", lines[1])
	}
}

func TestProcessReader_EmptyLines(t *testing.T) {
	var lines []string
	count, err := ProcessReader(strings.NewReader("line1\n\nline3\n\n"), collect(&lines), 0)
	if err != nil {
		t.Fatalf("ProcessReader() error = %v", err)
	}

	if count != 4 {
		t.Errorf("ProcessReader() count = %d, want 4", count)
	}

	expected := []string{"line1", "", "line3", ""}
	for i, exp := range expected {
		if i >= len(lines) {
			t.Errorf("missing line at index %d", i)
			continue
		}
		if lines[i] != exp {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i], exp)
		}
	}
}

// readLines reads n lines from r, failing the test after timeout.
func readLines(t *testing.T, r io.Reader, n int, timeout time.Duration) []string {
	t.Helper()

	type result struct {
		lines []string
		err   error
	}
	ch := make(chan result, 1)

	go func() {
		in := stream.New(r)
		var lines []string
		for len(lines) < n {
			line, err := in.ReadLine()
			if err != nil {
				ch <- result{lines, err}
				return
			}
			lines = append(lines, line.Text)
		}
		ch <- result{lines, nil}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("reading lines: %v (got %v)", res.err, res.lines)
		}
		return res.lines
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for %d lines", n)
		return nil
	}
}

func TestTailer_FromStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	if err := os.WriteFile(path, []byte("line1\nline2\nline3\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tailer := New(path, nil, FromStart())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := tailer.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if tailer.Offset() != 0 {
		t.Errorf("Offset() = %d, want 0", tailer.Offset())
	}

	lines := readLines(t, r, 3, 5*time.Second)
	if strings.Join(lines, ",") != "line1,line2,line3" {
		t.Errorf("lines = %v", lines)
	}

	if err := tailer.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestTailer_FollowNewLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	existing := "old line\n"
	if err := os.WriteFile(path, []byte(existing), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tailer := New(path, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := tailer.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tailer.Stop()

	if tailer.Offset() != int64(len(existing)) {
		t.Errorf("Offset() = %d, want %d", tailer.Offset(), len(existing))
	}

	// Give the tailer time to start watching
	time.Sleep(100 * time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	if _, err := f.WriteString("new line 1\nnew line 2\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	f.Sync()
	f.Close()

	lines := readLines(t, r, 2, 5*time.Second)
	if strings.Join(lines, ",") != "new line 1,new line 2" {
		t.Errorf("lines = %v", lines)
	}
}

func TestTailer_CancelEndsReader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tailer := New(path, nil)
	ctx, cancel := context.WithCancel(context.Background())

	r, err := tailer.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tailer.Stop()

	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(r)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, io.EOF) {
			t.Errorf("ReadAll() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reader not closed after cancel")
	}
}

func TestTailer_NonExistentFile(t *testing.T) {
	tailer := New("/nonexistent/file.log", nil)

	if _, err := tailer.Start(context.Background()); err == nil {
		t.Error("Start() should return error for non-existent file")
	}
}

func TestTailer_DoubleStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	if err := os.WriteFile(path, []byte("test\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tailer := New(path, nil)

	ctx := context.Background()

	if _, err := tailer.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tailer.Stop()

	if _, err := tailer.Start(ctx); err == nil {
		t.Error("Second Start() should return error")
	}
}

func TestTailer_StopWithoutStart(t *testing.T) {
	tailer := New("/var/log/test.log", nil)
	if err := tailer.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if tailer.Path() != "/var/log/test.log" {
		t.Errorf("Path() = %q, want %q", tailer.Path(), "/var/log/test.log")
	}
}

func TestTailer_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	if err := os.WriteFile(path, []byte("before\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	tailer := New(path, nil, FromStart(), WithPolling())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r, err := tailer.Start(ctx)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer tailer.Stop()

	if lines := readLines(t, r, 1, 5*time.Second); lines[0] != "before" {
		t.Errorf("lines = %v", lines)
	}
	if n := tailer.Rotations(); n != 0 {
		t.Errorf("Rotations() = %d before rotation, want 0", n)
	}

	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("after\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if lines := readLines(t, r, 1, 10*time.Second); lines[0] != "after" {
		t.Errorf("lines = %v", lines)
	}
	if n := tailer.Rotations(); n != 1 {
		t.Errorf("Rotations() = %d, want 1", n)
	}
}
