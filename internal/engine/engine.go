package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
)

// DefaultNotifyTimeout bounds one background notification.
const DefaultNotifyTimeout = 30 * time.Second

// Engine drives the conversational flows.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - HandleMessage(): safe from any goroutine; serialized per user
//   - Run(): must be called from exactly one goroutine
type Engine struct {
	storage  Storage
	catalog  *flow.Catalog
	sender   Sender
	resolver AttachmentResolver
	notifier Notifier
	clock    Clock
	ids      IDGenerator
	recorder Recorder
	logger   *slog.Logger

	adminPassphrase string
	reprompt        bool
	notifyTimeout   time.Duration

	queue *eventQueue
	locks keyedMutex

	boxMu    sync.Mutex
	boxes    map[string][]Message
	drainers sync.WaitGroup

	background sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the attachment resolver. The default stores the
// transport's file id unchanged.
func WithResolver(r AttachmentResolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithNotifier sets the notification sink used after prayer-request and
// new-person commits. Without one, notifications are skipped.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock sets the commit timestamp source.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the entity id source.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithAdminPassphrase enables access elevation. An empty passphrase
// disables it.
func WithAdminPassphrase(p string) Option {
	return func(e *Engine) { e.adminPassphrase = p }
}

// WithMismatchReprompt makes the engine repeat the current prompt when a
// message of the wrong kind arrives mid-flow. By default it stays silent.
func WithMismatchReprompt(on bool) Option {
	return func(e *Engine) { e.reprompt = on }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifyTimeout bounds each background notification.
func WithNotifyTimeout(d time.Duration) Option {
	return func(e *Engine) { e.notifyTimeout = d }
}

// New creates an Engine over the given storage port, catalog and sender.
func New(storage Storage, catalog *flow.Catalog, sender Sender, opts ...Option) *Engine {
	e := &Engine{
		storage:       storage,
		catalog:       catalog,
		sender:        sender,
		resolver:      fileIDResolver{},
		clock:         SystemClock{},
		ids:           UUIDv7Generator{},
		recorder:      nopRecorder{},
		notifyTimeout: DefaultNotifyTimeout,
		queue:         newEventQueue(),
		boxes:         make(map[string][]Message),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Catalog returns the flow catalog the engine interprets.
func (e *Engine) Catalog() *flow.Catalog { return e.catalog }

// Enqueue submits a message for processing by the Run loop.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(m Message) bool {
	return e.queue.Enqueue(m)
}

// QueueLen returns the number of messages not yet handed to a mailbox.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run moves queued messages into per-user mailboxes until ctx is cancelled
// or Stop is called. Mailboxes already holding messages are drained before
// Run returns.
//
// Dispatch failures are logged and never stop the loop.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")
	defer e.drainers.Wait()

	for {
		if m, ok := e.queue.TryDequeue(); ok {
			e.deliver(ctx, m)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Drained() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the inbound queue. Run returns once the queue and all
// mailboxes are drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Wait blocks until background notifications have finished.
func (e *Engine) Wait() {
	e.background.Wait()
}

// deliver appends m to its user's mailbox, starting a drain goroutine when
// the mailbox was empty.
func (e *Engine) deliver(ctx context.Context, m Message) {
	e.boxMu.Lock()
	pending, active := e.boxes[m.UserID]
	e.boxes[m.UserID] = append(pending, m)
	e.boxMu.Unlock()

	if active {
		return
	}
	e.drainers.Add(1)
	go e.drain(context.WithoutCancel(ctx), m.UserID)
}

func (e *Engine) drain(ctx context.Context, userID string) {
	defer e.drainers.Done()
	for {
		e.boxMu.Lock()
		box := e.boxes[userID]
		if len(box) == 0 {
			delete(e.boxes, userID)
			e.boxMu.Unlock()
			return
		}
		m := box[0]
		e.boxes[userID] = box[1:]
		e.boxMu.Unlock()

		if err := e.HandleMessage(ctx, m); err != nil {
			e.logger.Error("dispatch failed", "user", m.UserID, "error", err)
		}
	}
}

// HandleMessage dispatches one message synchronously. Messages of the same
// user are serialized; different users proceed in parallel.
//
// The returned error is informational: the user has already been answered
// where an answer makes sense.
func (e *Engine) HandleMessage(ctx context.Context, m Message) error {
	if m.IsBot || m.UserID == "" {
		return nil
	}

	unlock := e.locks.Lock(m.UserID)
	defer unlock()

	start := time.Now()
	defer func() { e.recorder.ObserveDispatch(time.Since(start)) }()

	return e.dispatch(ctx, m)
}

// ministryNames adapts the reference reader to the catalog's Reference.
type ministryNames struct{ r ReferenceReader }

func (m ministryNames) MinistryNames(ctx context.Context) ([]string, error) {
	list, err := m.r.Ministries(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(list))
	for i, min := range list {
		names[i] = min.Name
	}
	return names, nil
}

var _ flow.Reference = ministryNames{}

func (e *Engine) send(ctx context.Context, sess model.Session, chatID, text string, keyboard []string, markdown bool) {
	err := e.sender.Send(ctx, Reply{ChatID: chatID, Text: text, Keyboard: keyboard, Markdown: markdown})
	if err != nil {
		e.logger.Warn("send failed", "user", sess.UserID, "step", sess.Step.String(), "error", err)
	}
}
