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
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/alexisargyris/lit-critic-sub001/pkg/critic"
)

// DefaultWatchdog bounds how long one exchange may run without settling.
const DefaultWatchdog = 5 * time.Minute

// ErrStreamTimeout is the synthetic failure the watchdog settles an
// exchange with when neither a done event nor a transport error arrives
// in time.
var ErrStreamTimeout = errors.New("discussion stream timed out")

// State is the exchange lifecycle state. The set is closed.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateSettled   State = "settled"
)

// Stream is the slice of critic.EventStream the controller consumes.
// *critic.EventStream satisfies it.
type Stream interface {
	Events() <-chan critic.Event
	Err() error
	Cancel()
}

// Streamer opens the discussion stream for one critique.
type Streamer interface {
	Open(ctx context.Context, number int, message string) (Stream, error)
}

// Listener is the presentation boundary for one exchange. Calls arrive
// from the exchange goroutine; implementations must be safe for that.
type Listener interface {
	// MessageSent fires immediately when Send accepts a message,
	// before the stream opens.
	MessageSent(number int, message string)
	// TokenReceived fires per streamed token, in order.
	TokenReceived(content string)
	// SceneChanged reports that the manuscript changed mid-exchange.
	// The exchange itself continues.
	SceneChanged(files []string)
	// Settled ends the exchange. On success err is nil and reply holds
	// the full accumulated reply. On failure err is non-nil and reply
	// holds whatever accumulated before the stream broke, possibly
	// nothing.
	Settled(number int, reply string, err error)
}

// NopListener discards every notification.
type NopListener struct{}

func (NopListener) MessageSent(int, string)    {}
func (NopListener) TokenReceived(string)       {}
func (NopListener) SceneChanged([]string)      {}
func (NopListener) Settled(int, string, error) {}

var _ Listener = NopListener{}

// =============================================================================
// Controller
// =============================================================================

// ControllerConfig configures a Controller. Streamer is required.
type ControllerConfig struct {
	Streamer Streamer
	Listener Listener      // optional, default NopListener
	Watchdog time.Duration // optional, default DefaultWatchdog
	Logger   *slog.Logger  // optional, default slog.Default
}

// Controller runs discussion exchanges one at a time. A new Send while an
// exchange is in flight cancels it; the superseded exchange never settles.
type Controller struct {
	streamer Streamer
	listener Listener
	watchdog time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	gen    int // exchange generation; stale goroutines compare and stop
	cancel context.CancelFunc
}

// NewController creates an idle controller.
func NewController(config ControllerConfig) *Controller {
	listener := config.Listener
	if listener == nil {
		listener = NopListener{}
	}
	watchdog := config.Watchdog
	if watchdog <= 0 {
		watchdog = DefaultWatchdog
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		streamer: config.Streamer,
		listener: listener,
		watchdog: watchdog,
		logger:   logger,
		state:    StateIdle,
	}
}

// State returns the current exchange state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send starts an exchange about critique number with the given message.
// Any in-flight exchange is cancelled first; its partial reply is
// discarded and it does not settle. Send returns once the exchange is
// started; the outcome arrives through the listener.
func (c *Controller) Send(ctx context.Context, number int, message string) {
	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	c.cancel = cancel
	c.state = StateSending
	c.mu.Unlock()

	c.listener.MessageSent(number, message)

	go c.run(ctx, gen, number, message)
}

// Cancel tears down any in-flight exchange and returns the controller to
// idle. The cancelled exchange does not settle.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.state = StateIdle
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------
// Exchange goroutine
// -----------------------------------------------------------------------------

func (c *Controller) run(ctx context.Context, gen, number int, message string) {
	stream, err := c.streamer.Open(ctx, number, message)
	if err != nil {
		c.settle(gen, number, "", err)
		return
	}
	defer stream.Cancel()

	if !c.transition(gen, StateStreaming) {
		return
	}

	watchdog := time.NewTimer(c.watchdog)
	defer watchdog.Stop()

	var reply strings.Builder
	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				// Stream ended without a done event: a transport
				// failure, or a clean EOF with whatever accumulated.
				c.settle(gen, number, reply.String(), stream.Err())
				return
			}
			switch event.Kind {
			case critic.EventToken:
				reply.WriteString(event.Content)
				if !c.current(gen) {
					return
				}
				c.listener.TokenReceived(event.Content)
			case critic.EventSceneChange:
				if !c.current(gen) {
					return
				}
				c.logger.Info("manuscript changed mid-discussion",
					"number", number,
					"changed_files", event.ChangedFiles,
				)
				c.listener.SceneChanged(event.ChangedFiles)
			case critic.EventDone:
				c.settle(gen, number, reply.String(), nil)
				return
			default:
				// Kinds outside the discussion set are ignored.
			}

		case <-watchdog.C:
			c.logger.Warn("discussion watchdog fired",
				"number", number,
				"after", c.watchdog,
			)
			c.settle(gen, number, "", ErrStreamTimeout)
			return

		case <-ctx.Done():
			// Superseded or cancelled: discard the partial reply.
			return
		}
	}
}

// current reports whether gen is still the active exchange.
func (c *Controller) current(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen == c.gen
}

// transition moves the active exchange to next; stale exchanges are
// refused.
func (c *Controller) transition(gen int, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return false
	}
	c.state = next
	return true
}

// settle ends the exchange, if it is still the active one.
func (c *Controller) settle(gen, number int, reply string, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state = StateSettled
	c.cancel = nil
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("discussion exchange failed", "number", number, "error", err)
	}
	c.listener.Settled(number, reply, err)
}

// =============================================================================
// Service adapter
// =============================================================================

// serviceStreamer binds a critic.Service and session to the Streamer
// interface.
type serviceStreamer struct {
	service   *critic.Service
	sessionID string
}

// NewServiceStreamer returns a Streamer that opens discussion streams for
// the given session.
func NewServiceStreamer(service *critic.Service, sessionID string) Streamer {
	return &serviceStreamer{service: service, sessionID: sessionID}
}

func (s *serviceStreamer) Open(ctx context.Context, number int, message string) (Stream, error) {
	stream, err := s.service.OpenDiscussionStream(ctx, s.sessionID, number, message)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
