package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// InputConfig holds the configuration for an InputController.
type InputConfig struct {
	Store Store
	// Gate disables submission while offline. Nil means always online.
	Gate       *Gate
	Collection string
	// ServerTimestamp asks the store to stamp every note.
	ServerTimestamp bool
	// RestoreDraftOnFailure puts the submitted text back when a create fails
	// and the draft is still empty. By default a failed note is dropped.
	RestoreDraftOnFailure bool
	// Suspended refuses submission while it returns true, whatever the gate
	// says. App wires it to the list's offline state.
	Suspended func() bool
	// AfterWrite runs once a create has settled, successful or not.
	// The pull model uses it to force a re-fetch.
	AfterWrite   func()
	Logger       *slog.Logger
	ErrorHandler func(error)
}

// InputController owns the draft of the next note and turns a submission
// into exactly one create request.
type InputController struct {
	mu       sync.Mutex
	config   InputConfig
	reporter reporter
	draft    string
	issued   int
	failed   int
	inflight sync.WaitGroup
}

// NewInputController creates an InputController bound to a store.
func NewInputController(config InputConfig) (*InputController, error) {
	if config.Store == nil {
		return nil, errors.New("input controller requires a store")
	}
	if config.Collection == "" {
		config.Collection = DefaultCollection
	}
	if err := ValidateCollection(config.Collection); err != nil {
		return nil, err
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &InputController{
		config:   config,
		reporter: newReporter(config.Logger, config.ErrorHandler),
	}, nil
}

// SetDraft replaces the pending text.
func (c *InputController) SetDraft(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = text
}

// Draft returns the pending text.
func (c *InputController) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// CanSubmit reports whether Submit would issue a request.
func (c *InputController) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canSubmitLocked()
}

func (c *InputController) canSubmitLocked() bool {
	if strings.TrimSpace(c.draft) == "" || !c.config.Gate.Online() {
		return false
	}
	return c.config.Suspended == nil || !c.config.Suspended()
}

// Submit issues one create request for the draft and clears it without
// waiting for the store. It returns false, issuing nothing, when the draft is
// blank, the gate is offline or the controller is suspended.
//
// Nothing prevents two quick submissions of different drafts from racing at
// the store.
func (c *InputController) Submit(ctx context.Context) bool {
	c.mu.Lock()
	if !c.canSubmitLocked() {
		c.mu.Unlock()
		return false
	}
	text := c.draft
	c.draft = ""
	c.issued++
	c.mu.Unlock()

	payload := Payload{Text: text, ServerTimestamp: c.config.ServerTimestamp}

	goRemote(ctx, &c.inflight, "create", func(err error) {
		c.reporter.report("create panicked", err)
	}, func(ctx context.Context) {
		id, err := c.config.Store.Create(ctx, c.config.Collection, payload)
		if err != nil {
			c.fail(text, err)
		} else {
			c.config.Logger.Debug("note created", "collection", c.config.Collection, "id", id)
		}

		if c.config.AfterWrite != nil {
			c.config.AfterWrite()
		}
	})

	return true
}

func (c *InputController) fail(text string, err error) {
	c.reporter.report("failed to create note", err, "collection", c.config.Collection)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.failed++
	if c.config.RestoreDraftOnFailure && c.draft == "" {
		c.draft = text
	}
}

// Wait blocks until every issued create has settled.
func (c *InputController) Wait() {
	c.inflight.Wait()
}

// InputState is the observable state of an InputController.
type InputState struct {
	Collection string `json:"collection"`
	DraftSize  int    `json:"draft_size"`
	CanSubmit  bool   `json:"can_submit"`
	Issued     int    `json:"issued"`
	Failed     int    `json:"failed"`
}

// State implements introspection.Introspectable.
func (c *InputController) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return InputState{
		Collection: c.config.Collection,
		DraftSize:  len(c.draft),
		CanSubmit:  c.canSubmitLocked(),
		Issued:     c.issued,
		Failed:     c.failed,
	}
}

// ComponentType implements introspection.Component.
func (c *InputController) ComponentType() string {
	return "input"
}
