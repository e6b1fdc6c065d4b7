// Package audio bridges a live microphone capture to the assistant's
// transcription operation and plays back synthesized speech.
package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// State tracks the recording pipeline:
// idle -> recording -> (paused <-> recording) -> idle (via Stop or Cancel).
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
)

var (
	// ErrBusy rejects a second session while one holds the device.
	ErrBusy = errors.New("a recording session is already active")
	// ErrNotRecording is returned by pause/resume/stop outside a session.
	ErrNotRecording = errors.New("no active recording session")
)

// Source opens an exclusive capture stream. The returned reader yields
// encoded audio; Close must release the underlying device.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, string, error)
}

const chunkSize = 4096

// Recorder accumulates capture chunks and hands the concatenated payload to
// the caller on Stop. The microphone is exclusive: one active session only.
type Recorder struct {
	source Source
	logger *logrus.Logger

	mu      sync.Mutex
	state   State
	chunks  [][]byte
	mime    string
	stream  io.ReadCloser
	started time.Time
	done    chan struct{}
}

func NewRecorder(source Source, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{source: source, logger: logger}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed reports how long the current session has been open.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateIdle {
		return 0
	}
	return time.Since(r.started)
}

// Start opens the device and begins accumulating chunks. Device failures
// (for example a denied microphone permission) surface here, synchronously —
// recording never silently "starts" in a broken state.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrBusy
	}
	stream, mime, err := r.source.Open(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	r.state = StateRecording
	r.stream = stream
	r.mime = mime
	r.chunks = nil
	r.started = time.Now()
	r.done = make(chan struct{})
	done := r.done
	r.mu.Unlock()

	go r.pump(stream, done)
	return nil
}

func (r *Recorder) pump(stream io.Reader, done chan struct{}) {
	defer close(done)
	buf := make([]byte, chunkSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.mu.Lock()
			// Paused sessions keep the device open but drop fresh data;
			// previously captured chunks stay intact.
			if r.state == StateRecording {
				r.chunks = append(r.chunks, chunk)
			}
			r.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				r.logger.WithError(err).Debug("audio: capture stream ended")
			}
			return
		}
	}
}

// Pause suspends chunk accumulation without discarding captured audio.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return ErrNotRecording
	}
	r.state = StatePaused
	return nil
}

// Resume continues accumulation after a pause.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return ErrNotRecording
	}
	r.state = StateRecording
	return nil
}

// Stop releases the device and returns the concatenated payload plus its
// mime type, ready for transcription.
func (r *Recorder) Stop() ([]byte, string, error) {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return nil, "", ErrNotRecording
	}
	stream := r.stream
	done := r.done
	r.mu.Unlock()

	stream.Close()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	payload := bytes.Join(r.chunks, nil)
	mime := r.mime
	r.reset()
	return payload, mime, nil
}

// Cancel releases the device and discards the buffered audio. Views must
// call this on teardown or the hardware stays held across transitions.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	if r.state == StateIdle {
		r.mu.Unlock()
		return
	}
	stream := r.stream
	done := r.done
	r.mu.Unlock()

	stream.Close()
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
}

func (r *Recorder) reset() {
	r.state = StateIdle
	r.chunks = nil
	r.stream = nil
	r.mime = ""
	r.done = nil
}
