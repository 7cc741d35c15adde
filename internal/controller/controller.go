// Package controller owns the dashboard's cached state and its polling
// concerns: influencer readiness, image-generation completion, and chat
// refresh. Each concern holds at most one live poll handle; starting a
// concern again cancels the previous handle first.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/digkill/SweetheartDash/internal/models"
	"github.com/digkill/SweetheartDash/internal/poller"
)

// ErrSoftTimeout means the bounded chat-reply wait exhausted its attempt
// budget without seeing an assistant message. It is logged, never surfaced.
var ErrSoftTimeout = errors.New("assistant reply wait timed out")

// Backend is the slice of the API surface the controller drives.
type Backend interface {
	Me(ctx context.Context) (models.Account, error)
	Influencer(ctx context.Context) (*models.Influencer, error)
	CreateInfluencer(ctx context.Context, name, bio, vibe string) error
	Images(ctx context.Context) (models.Gallery, error)
	CreateImage(ctx context.Context, prompt string) error
	Chat(ctx context.Context) (models.Chat, error)
	SendMessage(ctx context.Context, content string) error
}

type concern string

const (
	concernReadiness   concern = "influencer-readiness"
	concernGeneration  concern = "generation-wait"
	concernChatRefresh concern = "chat-refresh"
)

// Options tune the polling cadence. Zero values fall back to the web
// dashboard's intervals.
type Options struct {
	PollInterval      time.Duration
	ChatPollInterval  time.Duration
	ReplyPollInterval time.Duration
	ReplyMaxAttempts  int
	TypingGraceDelay  time.Duration
}

func (o *Options) applyDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.ChatPollInterval <= 0 {
		o.ChatPollInterval = 5 * time.Second
	}
	if o.ReplyPollInterval <= 0 {
		o.ReplyPollInterval = 2 * time.Second
	}
	if o.ReplyMaxAttempts <= 0 {
		o.ReplyMaxAttempts = 30
	}
	if o.TypingGraceDelay <= 0 {
		o.TypingGraceDelay = time.Second
	}
}

// State is the controller's cached view of the backend. Every derived
// visibility flag is recomputed from it rather than toggled incrementally.
type State struct {
	Account      models.Account
	Influencer   *models.Influencer
	Locked       bool
	Ready        bool
	GalleryCount int
	ChatID       string
	CanSend      bool
}

type Controller struct {
	backend Backend
	sink    Sink
	pollers *poller.Poller
	clock   poller.Clock
	opts    Options
	log     *slog.Logger

	mu      sync.Mutex
	state   State
	handles map[concern]*poller.Handle
}

func New(backend Backend, sink Sink, clock poller.Clock, opts Options, log *slog.Logger) *Controller {
	opts.applyDefaults()
	if clock == nil {
		clock = poller.SystemClock()
	}
	if sink == nil {
		sink = NopSink{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Controller{
		backend: backend,
		sink:    sink,
		pollers: poller.New(clock, log),
		clock:   clock,
		opts:    opts,
		log:     log,
		handles: make(map[concern]*poller.Handle),
	}
}

// Snapshot returns a copy of the cached state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start renders initial state synchronously and spins up whatever pollers the
// current backend state calls for. Pollers run until their stop condition,
// Stop, or ctx cancellation.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.loadAccount(ctx); err != nil {
		return err
	}

	first, err := c.backend.Influencer(ctx)
	if err != nil {
		return fmt.Errorf("fetch influencer: %w", err)
	}
	c.renderInfluencer(first)
	c.refreshCreateImageVisibility()
	c.loadGallery(ctx)

	if first.Ready() {
		c.markReady()
		c.loadChat(ctx)
		c.startChatRefresh(ctx)
		return nil
	}

	// No influencer yet, or generation still in flight: keep polling until
	// the locked profile with its image shows up.
	c.startReadinessPoll(ctx)
	return nil
}

// Run is Start plus blocking until ctx is done, then stopping all concerns.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.StopAll()
	return ctx.Err()
}

// StopAll cancels every live poll handle.
func (c *Controller) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, h := range c.handles {
		h.Stop()
		delete(c.handles, name)
	}
}

// ReadinessDone returns a channel closed when the influencer-readiness poll
// exits. Already closed when no poll is running.
func (c *Controller) ReadinessDone() <-chan struct{} {
	return c.concernDone(concernReadiness)
}

// GenerationDone returns a channel closed when the generation-wait poll
// exits. Already closed when no wait is running.
func (c *Controller) GenerationDone() <-chan struct{} {
	return c.concernDone(concernGeneration)
}

func (c *Controller) concernDone(name concern) <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok := c.handles[name]; ok {
		return h.Done()
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// startConcern replaces any live handle for the named concern, keeping the
// at-most-one-handle invariant.
func (c *Controller) startConcern(ctx context.Context, name concern, interval time.Duration, tick poller.TickFunc, stop poller.StopFunc) {
	c.mu.Lock()
	if prev, ok := c.handles[name]; ok {
		prev.Stop()
	}
	c.handles[name] = c.pollers.Start(ctx, interval, tick, stop)
	c.mu.Unlock()

	if c.log != nil {
		c.log.Debug("poller started", "concern", string(name), "interval", interval)
	}
}

// --- account / influencer ---------------------------------------------------

func (c *Controller) loadAccount(ctx context.Context) error {
	account, err := c.backend.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}

	c.mu.Lock()
	c.state.Account = account
	c.mu.Unlock()

	c.sink.ShowAccount(account)
	return nil
}

func (c *Controller) renderInfluencer(influencer *models.Influencer) {
	c.mu.Lock()
	c.state.Influencer = influencer
	c.state.Locked = influencer != nil && influencer.IsLocked
	c.mu.Unlock()

	c.sink.ShowInfluencer(influencer)
}

func (c *Controller) refreshCreateImageVisibility() {
	c.mu.Lock()
	visible := c.state.Locked && c.state.Account.Credits > 0
	c.mu.Unlock()

	c.sink.SetCreateImageVisible(visible)
}

func (c *Controller) markReady() {
	c.mu.Lock()
	c.state.Ready = true
	c.state.Locked = true
	c.mu.Unlock()
}

// CreateInfluencer enqueues generation and starts waiting for the initial
// image. Validation errors and request failures propagate to the caller.
func (c *Controller) CreateInfluencer(ctx context.Context, name, bio, vibe string) error {
	c.sink.SetSpinner(true)
	if err := c.backend.CreateInfluencer(ctx, name, bio, vibe); err != nil {
		c.sink.SetSpinner(false)
		return err
	}

	shell, err := c.backend.Influencer(ctx)
	if err != nil {
		c.log.Warn("fetch influencer after create failed", "err", err)
	} else {
		c.renderInfluencer(shell)
	}

	// Spinner is released when the readiness poll sees the final image.
	c.startReadinessPoll(ctx)
	return nil
}

// startReadinessPoll re-fetches the influencer until it is locked with an
// initial image, then unlocks the dependent sections exactly once.
func (c *Controller) startReadinessPoll(ctx context.Context) {
	tick := func(ctx context.Context) error {
		influencer, err := c.backend.Influencer(ctx)
		if err != nil {
			return err
		}
		c.renderInfluencer(influencer)

		if !influencer.Ready() {
			return nil
		}

		c.mu.Lock()
		already := c.state.Ready
		c.mu.Unlock()
		if already {
			return nil
		}

		c.markReady()
		c.sink.SetSpinner(false)
		c.refreshCreateImageVisibility()
		c.loadGallery(ctx)
		c.loadChat(ctx)
		c.startChatRefresh(ctx)
		return nil
	}

	stop := func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.state.Ready
	}

	c.startConcern(ctx, concernReadiness, c.opts.PollInterval, tick, stop)
}

// --- gallery ----------------------------------------------------------------

// loadGallery refreshes the gallery cache. Failures are logged and swallowed;
// the dashboard simply keeps the previous gallery for this tick.
func (c *Controller) loadGallery(ctx context.Context) {
	gallery, err := c.backend.Images(ctx)
	if err != nil {
		c.log.Warn("gallery load failed", "err", err)
		return
	}

	c.mu.Lock()
	c.state.GalleryCount = gallery.Count()
	c.mu.Unlock()

	c.sink.ShowGallery(gallery)
}

// GenerateImage enqueues one more image and starts the generation-wait
// concern against the current gallery count. A second call while one wait is
// in flight cancels the first poller.
func (c *Controller) GenerateImage(ctx context.Context, prompt string) error {
	c.sink.SetSpinner(true)
	if err := c.backend.CreateImage(ctx, prompt); err != nil {
		c.sink.SetSpinner(false)
		return err
	}

	c.mu.Lock()
	baseline := c.state.GalleryCount
	c.mu.Unlock()

	c.startGenerationWait(ctx, baseline)
	return nil
}

func (c *Controller) startGenerationWait(ctx context.Context, baseline int) {
	var done bool
	var doneMu sync.Mutex

	finish := func() {
		doneMu.Lock()
		done = true
		doneMu.Unlock()
	}

	tick := func(ctx context.Context) error {
		if err := c.loadAccount(ctx); err != nil {
			return err
		}
		c.loadGallery(ctx)
		c.refreshCreateImageVisibility()

		snapshot := c.Snapshot()
		if snapshot.GalleryCount > baseline {
			c.sink.SetSpinner(false)
			finish()
			return nil
		}
		if snapshot.Account.Credits <= 0 {
			// Out of credits: end the wait with an explicit terminal state
			// instead of freezing silently.
			c.sink.SetSpinner(false)
			c.sink.Notice("Out of credits — upgrade to keep generating images.")
			finish()
		}
		return nil
	}

	stop := func() bool {
		doneMu.Lock()
		defer doneMu.Unlock()
		return done
	}

	c.startConcern(ctx, concernGeneration, c.opts.PollInterval, tick, stop)
}

// --- chat -------------------------------------------------------------------

// loadChat refreshes the transcript and send permission. A nil chat in the
// response means the chat has not been unlocked yet.
func (c *Controller) loadChat(ctx context.Context) {
	chat, err := c.backend.Chat(ctx)
	if err != nil {
		c.log.Warn("chat load failed", "err", err)
		return
	}

	c.mu.Lock()
	if chat.Chat != nil {
		c.state.ChatID = chat.Chat.ID
	} else {
		c.state.ChatID = ""
	}
	c.state.CanSend = chat.Chat != nil && chat.CanSend
	c.mu.Unlock()

	c.sink.ShowChat(chat)
}

// startChatRefresh keeps the transcript current in the background. It has no
// stop condition and runs for the life of ctx.
func (c *Controller) startChatRefresh(ctx context.Context) {
	tick := func(ctx context.Context) error {
		c.loadChat(ctx)
		return nil
	}
	c.startConcern(ctx, concernChatRefresh, c.opts.ChatPollInterval, tick, nil)
}

// SendMessage posts one user message, then waits (bounded) for the assistant
// reply. The wait budget expiring is a soft timeout: logged, not returned.
func (c *Controller) SendMessage(ctx context.Context, content string) error {
	if err := c.backend.SendMessage(ctx, content); err != nil {
		return err
	}

	err := c.waitForAssistant(ctx)
	if errors.Is(err, ErrSoftTimeout) {
		c.log.Warn("assistant reply wait timed out")
		return nil
	}
	if err != nil {
		return err
	}

	// Reload full chat state to pick up any send-permission change, such as
	// a daily limit newly reached.
	c.loadChat(ctx)
	return nil
}

// waitForAssistant polls the transcript until a new assistant message lands
// or the attempt budget runs out. A typing indicator appears after a short
// grace delay and is always cleared on exit.
func (c *Controller) waitForAssistant(ctx context.Context) error {
	typingDone := make(chan struct{})
	typingExited := make(chan struct{})
	go func() {
		defer close(typingExited)
		select {
		case <-c.clock.After(c.opts.TypingGraceDelay):
			c.sink.SetTyping(true)
		case <-typingDone:
		}
	}()
	defer func() {
		close(typingDone)
		<-typingExited
		c.sink.SetTyping(false)
	}()

	// Snapshot: only a transcript longer than this with an assistant tail
	// counts as the reply having arrived. Showing it echoes the just-sent
	// message right away instead of waiting for the first poll.
	baseline := 0
	if initial, err := c.backend.Chat(ctx); err == nil {
		c.sink.ShowChat(initial)
		if initial.LastRole() == models.RoleAssistant {
			baseline = len(initial.Messages)
		}
	} else {
		c.log.Warn("chat snapshot failed", "err", err)
	}

	for attempt := 0; attempt < c.opts.ReplyMaxAttempts; attempt++ {
		chat, err := c.backend.Chat(ctx)
		if err != nil {
			c.log.Warn("chat poll failed", "err", err)
		} else {
			c.sink.ShowChat(chat)
			if len(chat.Messages) > baseline && chat.LastRole() == models.RoleAssistant {
				return nil
			}
		}

		if attempt == c.opts.ReplyMaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(c.opts.ReplyPollInterval):
		}
	}

	return ErrSoftTimeout
}
