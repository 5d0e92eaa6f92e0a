// SPDX-License-Identifier: MIT

// Package tailer follows a growing log file, across rotations, and exposes
// it as a byte stream a parser can consume.
package tailer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/nxadm/tail"

	"github.com/kolapsis/logparse/logparse/stream"
)

// Option configures a Tailer.
type Option func(*Tailer)

// FromStart makes the tailer read the existing content before following.
func FromStart() Option {
	return func(t *Tailer) {
		t.fromStart = true
	}
}

// WithPolling watches the file by polling instead of inotify.
func WithPolling() Option {
	return func(t *Tailer) {
		t.poll = true
	}
}

// Tailer watches and tails a file.
type Tailer struct {
	path      string
	logger    *slog.Logger
	fromStart bool
	poll      bool

	mu     sync.Mutex
	tail   *tail.Tail
	cancel context.CancelFunc
	pw     *io.PipeWriter
	done   chan struct{}
	offset int64

	// file identifies the file currently read; run owns it once started.
	file      os.FileInfo
	rotations atomic.Int64
}

// New creates a new Tailer for the given file path.
func New(path string, logger *slog.Logger, opts ...Option) *Tailer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Tailer{
		path:   path,
		logger: logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start begins tailing the file and returns a reader yielding each new line
// terminated by "\n". The reader returns io.EOF once the context is
// cancelled or Stop is called.
func (t *Tailer) Start(ctx context.Context) (io.Reader, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tail != nil {
		return nil, fmt.Errorf("tailer already running")
	}

	info, err := os.Stat(t.path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", t.path)
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", t.path, err)
	}

	t.file = info
	whence := io.SeekEnd
	t.offset = info.Size()
	if t.fromStart {
		whence = io.SeekStart
		t.offset = 0
	}

	cfg := tail.Config{
		Follow:    true,
		ReOpen:    true, // Handle log rotation
		MustExist: true,
		Poll:      t.poll,
		Location:  &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:    tail.DiscardingLogger,
	}

	tailFile, err := tail.TailFile(t.path, cfg)
	if err != nil {
		return nil, fmt.Errorf("tailing file: %w", err)
	}
	t.tail = tailFile

	pr, pw := io.Pipe()
	t.pw = pw
	t.done = make(chan struct{})

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	go t.run(ctx, tailFile, pw, t.done)

	t.logger.Info("started tailing file", "path", t.path, "offset", t.offset)
	return pr, nil
}

// Offset returns the absolute position of the first byte the reader
// returned by Start yields. Positions are only file offsets until the file
// is rotated: the reopened file is appended to the same stream, so later
// positions count bytes read since Start. Rotations reports when that
// happened.
func (t *Tailer) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.offset
}

// run copies lines from the tail into the pipe.
func (t *Tailer) run(ctx context.Context, tf *tail.Tail, pw *io.PipeWriter, done chan struct{}) {
	defer close(done)
	defer pw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-tf.Lines:
			if !ok {
				t.logger.Debug("tail channel closed", "path", t.path)
				return
			}
			if line.Err != nil {
				t.logger.Error("error reading line", "path", t.path, "error", line.Err)
				continue
			}
			t.checkRotation()
			if _, err := io.WriteString(pw, line.Text+"\n"); err != nil {
				// The reading side was closed.
				return
			}
		}
	}
}

// checkRotation notices when the path names a different file than the one
// being read.
func (t *Tailer) checkRotation() {
	info, err := os.Stat(t.path)
	if err != nil || os.SameFile(t.file, info) {
		return
	}
	t.file = info
	n := t.rotations.Add(1)
	t.logger.Warn("file rotated, offsets are now stream positions", "path", t.path, "rotations", n)
}

// Rotations returns how many times the followed file was replaced.
func (t *Tailer) Rotations() int64 {
	return t.rotations.Load()
}

// Stop stops tailing the file.
func (t *Tailer) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	if t.tail == nil {
		return nil
	}

	// Unblock a pending write so run can observe the cancellation.
	t.pw.CloseWithError(io.EOF)
	<-t.done

	err := t.tail.Stop()
	t.tail.Cleanup()
	t.tail = nil
	t.logger.Info("stopped tailing file", "path", t.path)
	return err
}

// Path returns the file path being tailed.
func (t *Tailer) Path() string {
	return t.path
}

// LineHandler is called for each line read by ProcessReader.
type LineHandler func(line stream.Line)

// ProcessFile reads an entire file and processes each line.
// This is a one-shot operation, not continuous tailing.
func ProcessFile(path string, handler LineHandler, limit int) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	return ProcessReader(file, handler, limit)
}

// ProcessReader reads from a reader and processes each line, stopping after
// limit lines when limit is positive.
func ProcessReader(r io.Reader, handler LineHandler, limit int, opts ...stream.Option) (int, error) {
	lines := stream.New(r, opts...)
	count := 0

	for limit <= 0 || count < limit {
		line, err := lines.ReadLine()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("reading: %w", err)
		}
		handler(line)
		count++
	}

	return count, nil
}
