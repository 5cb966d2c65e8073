// Copyright (C) 2026 Alexis Argyris
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package discussion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
)

// fakeStream feeds events from a channel the test controls.
type fakeStream struct {
	events chan critic.Event
	err    error

	mu        sync.Mutex
	cancelled bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{events: make(chan critic.Event, 16)}
}

func (f *fakeStream) Events() <-chan critic.Event { return f.events }
func (f *fakeStream) Err() error                  { return f.err }

func (f *fakeStream) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = true
}

func (f *fakeStream) wasCancelled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancelled
}

// fakeStreamer hands out streams keyed by message when byMessage is set,
// otherwise in order, one per Open call. Exchanges run on goroutines, so
// Open calls need not arrive in Send order; tests with concurrent
// exchanges must key streams by message to get a deterministic pairing.
type fakeStreamer struct {
	mu        sync.Mutex
	streams   []*fakeStream
	byMessage map[string]*fakeStream
	openErr   error
	opened    []string
}

func (f *fakeStreamer) Open(ctx context.Context, number int, message string) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, message)
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.byMessage != nil {
		s, ok := f.byMessage[message]
		if !ok {
			return nil, errors.New("fakeStreamer: no stream queued for message")
		}
		return s, nil
	}
	if len(f.streams) == 0 {
		return nil, errors.New("fakeStreamer: no stream queued")
	}
	s := f.streams[0]
	f.streams = f.streams[1:]
	return s, nil
}

// settlement captures one Settled call.
type settlement struct {
	number int
	reply  string
	err    error
}

// capturingListener records notifications and signals settlements.
type capturingListener struct {
	mu       sync.Mutex
	messages []string
	tokens   []string
	scenes   [][]string
	settled  chan settlement
}

func newCapturingListener() *capturingListener {
	return &capturingListener{settled: make(chan settlement, 4)}
}

func (l *capturingListener) MessageSent(number int, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, message)
}

func (l *capturingListener) TokenReceived(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = append(l.tokens, content)
}

func (l *capturingListener) SceneChanged(files []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scenes = append(l.scenes, files)
}

func (l *capturingListener) Settled(number int, reply string, err error) {
	l.settled <- settlement{number: number, reply: reply, err: err}
}

func (l *capturingListener) await(t *testing.T) settlement {
	t.Helper()
	select {
	case s := <-l.settled:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("exchange never settled")
		return settlement{}
	}
}

func (l *capturingListener) snapshotTokens() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.tokens...)
}

func newTestController(streamer Streamer, listener Listener, watchdog time.Duration) *Controller {
	return NewController(ControllerConfig{
		Streamer: streamer,
		Listener: listener,
		Watchdog: watchdog,
	})
}

func token(content string) critic.Event {
	return critic.Event{Kind: critic.EventToken, Content: content}
}

// =============================================================================
// Tests
// =============================================================================

func TestSendAccumulatesTokensAndSettles(t *testing.T) {
	stream := newFakeStream()
	streamer := &fakeStreamer{streams: []*fakeStream{stream}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 3, "is the pacing really off here?")

	stream.events <- token("Yes,")
	stream.events <- token(" chapter two")
	stream.events <- token(" stalls.")
	stream.events <- critic.Event{Kind: critic.EventDone}

	got := listener.await(t)
	if got.err != nil {
		t.Fatalf("settled with error: %v", got.err)
	}
	if got.number != 3 || got.reply != "Yes, chapter two stalls." {
		t.Fatalf("settled %+v, want number 3 with full reply", got)
	}
	if state := controller.State(); state != StateSettled {
		t.Fatalf("state = %q, want settled", state)
	}
	if len(listener.messages) != 1 || listener.messages[0] != "is the pacing really off here?" {
		t.Fatalf("user message not emitted immediately: %v", listener.messages)
	}
}

func TestSceneChangeForwardedWithoutStateChange(t *testing.T) {
	stream := newFakeStream()
	streamer := &fakeStreamer{streams: []*fakeStream{stream}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 1, "continue")
	stream.events <- token("a")
	stream.events <- critic.Event{Kind: critic.EventSceneChange, ChangedFiles: []string{"ch02.md"}}
	stream.events <- token("b")
	stream.events <- critic.Event{Kind: critic.EventDone}

	got := listener.await(t)
	if got.reply != "ab" {
		t.Fatalf("reply = %q, want tokens across the scene change", got.reply)
	}
	listener.mu.Lock()
	defer listener.mu.Unlock()
	if len(listener.scenes) != 1 || listener.scenes[0][0] != "ch02.md" {
		t.Fatalf("scene change not forwarded: %v", listener.scenes)
	}
}

func TestWatchdogSettlesWithTimeout(t *testing.T) {
	stream := newFakeStream()
	streamer := &fakeStreamer{streams: []*fakeStream{stream}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, 30*time.Millisecond)

	controller.Send(context.Background(), 2, "hello?")
	stream.events <- token("par")

	got := listener.await(t)
	if !errors.Is(got.err, ErrStreamTimeout) {
		t.Fatalf("err = %v, want ErrStreamTimeout", got.err)
	}
	if got.reply != "" {
		t.Fatalf("timed-out exchange surfaced a partial reply %q", got.reply)
	}
	if !stream.wasCancelled() {
		t.Fatal("stream not torn down after watchdog")
	}
}

func TestSecondSendSupersedesFirst(t *testing.T) {
	first := newFakeStream()
	second := newFakeStream()
	streamer := &fakeStreamer{byMessage: map[string]*fakeStream{
		"first question":  first,
		"second question": second,
	}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 1, "first question")
	first.events <- token("partial ")

	controller.Send(context.Background(), 1, "second question")
	second.events <- token("answer")
	second.events <- critic.Event{Kind: critic.EventDone}

	got := listener.await(t)
	if got.reply != "answer" {
		t.Fatalf("reply = %q, want only the second exchange's reply", got.reply)
	}

	// The superseded exchange must not settle, even after its stream
	// produces a done event.
	first.events <- critic.Event{Kind: critic.EventDone}
	select {
	case extra := <-listener.settled:
		t.Fatalf("superseded exchange settled: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelDiscardsPartialReply(t *testing.T) {
	stream := newFakeStream()
	streamer := &fakeStreamer{streams: []*fakeStream{stream}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 4, "thoughts?")
	stream.events <- token("half an ans")
	controller.Cancel()

	if state := controller.State(); state != StateIdle {
		t.Fatalf("state = %q after cancel, want idle", state)
	}

	stream.events <- critic.Event{Kind: critic.EventDone}
	select {
	case got := <-listener.settled:
		t.Fatalf("cancelled exchange settled: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOpenFailureSettlesWithError(t *testing.T) {
	boom := errors.New("connection refused")
	streamer := &fakeStreamer{openErr: boom}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 1, "anyone home?")

	got := listener.await(t)
	if !errors.Is(got.err, boom) {
		t.Fatalf("err = %v, want open failure", got.err)
	}
	if got.reply != "" {
		t.Fatalf("reply = %q, want empty", got.reply)
	}
}

func TestStreamEndWithoutDoneSettlesWithStreamError(t *testing.T) {
	stream := newFakeStream()
	stream.err = errors.New("connection reset")
	streamer := &fakeStreamer{streams: []*fakeStream{stream}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 5, "and then?")
	stream.events <- token("the plot")
	close(stream.events)

	got := listener.await(t)
	if got.err == nil || got.err.Error() != "connection reset" {
		t.Fatalf("err = %v, want the stream error", got.err)
	}
	if got.reply != "the plot" {
		t.Fatalf("reply = %q, want the partial reply kept alongside the error", got.reply)
	}
}

func TestTokensForwardedInOrder(t *testing.T) {
	stream := newFakeStream()
	streamer := &fakeStreamer{streams: []*fakeStream{stream}}
	listener := newCapturingListener()
	controller := newTestController(streamer, listener, time.Minute)

	controller.Send(context.Background(), 1, "go")
	want := []string{"one", "two", "three"}
	for _, w := range want {
		stream.events <- token(w)
	}
	stream.events <- critic.Event{Kind: critic.EventDone}
	listener.await(t)

	got := listener.snapshotTokens()
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
