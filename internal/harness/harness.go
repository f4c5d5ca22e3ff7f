package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/boni/internal/engine"
	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
	"github.com/roach88/boni/internal/seed"
	"github.com/roach88/boni/internal/store"
	"github.com/roach88/boni/internal/testutil"
)

// FileURLPrefix is prepended to attachment ids by the scenario resolver.
const FileURLPrefix = "https://files.test/"

var errWritesDisabled = errors.New("entity writes disabled by scenario")

// Harness runs one scenario against a fresh engine.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	sender   *recordingSender
	notifier *recordingNotifier
	profile  model.Profile
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a fresh in-memory database, seeded if the scenario asks
// 2. Build the engine over it with deterministic clock and ids
// 3. Dispatch every flow step synchronously, checking expect clauses
// 4. Wait for background notifications
// 5. Evaluate assertions against the database
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if scenario.Seed {
		if _, err := seed.Apply(ctx, st, seed.Defaults()); err != nil {
			return nil, fmt.Errorf("failed to seed store: %w", err)
		}
	}

	var storage engine.Storage = st
	if scenario.FailCommits {
		storage = failingWrites{st}
	}

	passphrase := scenario.Passphrase
	if passphrase == "" {
		passphrase = DefaultPassphrase
	}

	h := &Harness{
		store:    st,
		sender:   &recordingSender{},
		notifier: &recordingNotifier{},
		profile:  scenario.Profile.model(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	h.engine = engine.New(storage, flow.Default(), h.sender,
		engine.WithClock(testutil.NewFixedClock(testutil.Epoch)),
		engine.WithIDGenerator(testutil.NewSequenceGenerator("rec")),
		engine.WithResolver(prefixResolver{}),
		engine.WithNotifier(h.notifier),
		engine.WithAdminPassphrase(passphrase),
		engine.WithMismatchReprompt(scenario.Reprompt),
		engine.WithLogger(h.logger),
	)

	result := NewResult()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}
	h.engine.Wait()

	actx := &AssertionContext{
		Store:         st,
		Ctx:           ctx,
		Notifications: h.notifier.count(),
		Transcript:    result.Transcript,
	}
	for _, msg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) {
	msg := h.message(step)
	before := h.sender.len()

	// Dispatch errors are informational; the transcript shows what the
	// user was told.
	if err := h.engine.HandleMessage(ctx, msg); err != nil {
		h.logger.Debug("dispatch error", "step", index, "error", err)
	}

	ex := Exchange{UserID: msg.UserID, Input: inputLabel(step), Replies: h.sender.since(before)}
	result.Transcript = append(result.Transcript, ex)

	if step.Expect != nil {
		for _, msg := range checkExpect(step.Expect, ex.Replies) {
			result.AddError(fmt.Sprintf("flow[%d] %q: %s", index, ex.Input, msg))
		}
	}
}

func (h *Harness) message(step FlowStep) engine.Message {
	userID := step.User
	profile := h.profile
	if userID == "" {
		userID = DefaultUser
	} else if userID != DefaultUser {
		profile = model.Profile{FirstName: "Usuario", LastName: userID}
	}

	m := engine.Message{UserID: userID, ChatID: userID, Profile: profile, Text: step.Say}
	if step.Photo != "" {
		m.Attachments = []engine.Attachment{
			{FileID: step.Photo + "-thumb", Width: 90, Height: 90},
			{FileID: step.Photo, Width: 1280, Height: 960},
		}
	}
	return m
}

func inputLabel(step FlowStep) string {
	if step.Photo != "" {
		return "[photo " + step.Photo + "]"
	}
	return step.Say
}

func checkExpect(e *ExpectClause, replies []engine.Reply) []string {
	var errs []string
	if e.Silent {
		if len(replies) > 0 {
			errs = append(errs, fmt.Sprintf("expected no reply, got %q", replies[len(replies)-1].Text))
		}
		return errs
	}
	if len(replies) == 0 {
		return []string{"expected a reply, got none"}
	}
	last := replies[len(replies)-1]
	if e.ReplyContains != "" && !strings.Contains(last.Text, e.ReplyContains) {
		errs = append(errs, fmt.Sprintf("reply %q does not contain %q", last.Text, e.ReplyContains))
	}
	if len(e.Keyboard) > 0 && !equalStrings(e.Keyboard, last.Keyboard) {
		errs = append(errs, fmt.Sprintf("keyboard %v, want %v", last.Keyboard, e.Keyboard))
	}
	return errs
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type recordingSender struct {
	mu      sync.Mutex
	replies []engine.Reply
}

func (s *recordingSender) Send(_ context.Context, r engine.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, r)
	return nil
}

func (s *recordingSender) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.replies)
}

func (s *recordingSender) since(n int) []engine.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Reply, len(s.replies)-n)
	copy(out, s.replies[n:])
	return out
}

type recordingNotifier struct {
	mu sync.Mutex
	n  int
}

func (r *recordingNotifier) Notify(context.Context, string, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

type prefixResolver struct{}

func (prefixResolver) Resolve(_ context.Context, a engine.Attachment) (string, error) {
	return FileURLPrefix + a.FileID, nil
}

// failingWrites rejects every entity write while keeping sessions and
// reference data working.
type failingWrites struct{ *store.Store }

func (failingWrites) CreateEnvelopeLoad(context.Context, model.EnvelopeLoad) error {
	return errWritesDisabled
}

func (failingWrites) CreateInstituteEnrollment(context.Context, model.InstituteEnrollment) error {
	return errWritesDisabled
}

func (failingWrites) CreateInstitutePayment(context.Context, model.InstitutePayment) error {
	return errWritesDisabled
}

func (failingWrites) CreatePrayerRequest(context.Context, model.PrayerRequest) error {
	return errWritesDisabled
}

func (failingWrites) CreateNewPerson(context.Context, model.NewPersonRecord) error {
	return errWritesDisabled
}
