package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
	"github.com/roach88/boni/internal/testutil"
)

// memStorage is an in-memory Storage used by the engine tests.
type memStorage struct {
	mu         sync.Mutex
	sessions   map[string]model.Session
	ministries []model.Ministry
	leaders    []model.Leader
	entities   []model.Entity

	failCommit     error
	failMinistries error
	failSetStep    error
	creates        int
}

func newMemStorage() *memStorage {
	return &memStorage{
		sessions: make(map[string]model.Session),
		ministries: []model.Ministry{
			{ID: 1, Name: "Horeb", WhatsAppLink: "https://wa.me/123456789"},
			{ID: 2, Name: "MINIST JOVENES"},
			{ID: 3, Name: "Alabanza"},
		},
		leaders: []model.Leader{
			{ID: 1, Name: "Juan Perez", MinistryID: 1, Active: true},
			{ID: 2, Name: "Pedro Viejo", MinistryID: 1, Active: false},
			{ID: 3, Name: "Carlos Lopez", MinistryID: 3, Active: true},
		},
	}
}

func (s *memStorage) GetSession(_ context.Context, userID string) (model.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return model.Session{}, false, nil
	}
	sess.Data = sess.Data.Clone()
	return sess, true, nil
}

func (s *memStorage) CreateSession(_ context.Context, userID string, p model.Profile) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess, nil
	}
	s.creates++
	sess := model.Session{UserID: userID, Profile: p, Data: model.Data{}, Access: model.AccessUser}
	s.sessions[userID] = sess
	return sess, nil
}

func (s *memStorage) SetStep(_ context.Context, userID string, step model.StepID, merge model.Data) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetStep != nil {
		return model.Session{}, s.failSetStep
	}
	sess, ok := s.sessions[userID]
	if !ok {
		sess = model.Session{UserID: userID, Access: model.AccessUser}
	}
	sess.Data = model.ApplyStep(sess.Data, step, merge)
	sess.Step = step
	s.sessions[userID] = sess
	return sess, nil
}

func (s *memStorage) SetAccess(_ context.Context, userID string, level model.AccessLevel) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessions[userID]
	sess.Access = level
	s.sessions[userID] = sess
	return sess, nil
}

func (s *memStorage) add(e model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCommit != nil {
		return s.failCommit
	}
	s.entities = append(s.entities, e)
	return nil
}

func (s *memStorage) CreateEnvelopeLoad(_ context.Context, e model.EnvelopeLoad) error {
	return s.add(e)
}

func (s *memStorage) CreateInstituteEnrollment(_ context.Context, e model.InstituteEnrollment) error {
	return s.add(e)
}

func (s *memStorage) CreateInstitutePayment(_ context.Context, e model.InstitutePayment) error {
	return s.add(e)
}

func (s *memStorage) CreatePrayerRequest(_ context.Context, e model.PrayerRequest) error {
	return s.add(e)
}

func (s *memStorage) CreateNewPerson(_ context.Context, e model.NewPersonRecord) error {
	return s.add(e)
}

func (s *memStorage) Ministries(context.Context) ([]model.Ministry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failMinistries != nil {
		return nil, s.failMinistries
	}
	return append([]model.Ministry(nil), s.ministries...), nil
}

func (s *memStorage) MinistryByName(_ context.Context, name string) (model.Ministry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.ministries {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return model.Ministry{}, model.ErrNotFound
}

func (s *memStorage) Leaders(_ context.Context, ministryID int64) ([]model.Leader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Leader
	for _, l := range s.leaders {
		if l.MinistryID == ministryID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStorage) session(userID string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

func (s *memStorage) committed() []model.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Entity(nil), s.entities...)
}

// seed places userID at step with exactly data, bypassing the engine.
func (s *memStorage) seed(userID string, step model.StepID, data model.Data) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = model.Session{UserID: userID, Profile: testProfile, Step: step, Data: data, Access: model.AccessUser}
}

func (s *memStorage) setFailSetStep(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSetStep = err
}

func (s *memStorage) setFailCommit(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCommit = err
}

type recordingSender struct {
	mu      sync.Mutex
	replies []Reply
}

func (r *recordingSender) Send(_ context.Context, reply Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, reply)
	return nil
}

func (r *recordingSender) all() []Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Reply(nil), r.replies...)
}

func (r *recordingSender) last(t *testing.T) Reply {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.replies, "no reply sent")
	return r.replies[len(r.replies)-1]
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replies)
}

type sentNotification struct{ subject, body string }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{subject, body})
	return n.err
}

type urlResolver struct{ fail bool }

func (r urlResolver) Resolve(_ context.Context, a Attachment) (string, error) {
	if r.fail {
		return "", errors.New("file host unavailable")
	}
	return "https://files.test/" + a.FileID, nil
}

type harness struct {
	t       *testing.T
	engine  *Engine
	storage *memStorage
	sender  *recordingSender
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	st := newMemStorage()
	snd := &recordingSender{}
	base := []Option{
		WithResolver(urlResolver{}),
		WithClock(testutil.NewFixedClock(testutil.Epoch)),
		WithIDGenerator(testutil.NewSequenceGenerator("ent")),
		WithAdminPassphrase("clave-secreta"),
	}
	e := New(st, flow.Default(), snd, append(base, opts...)...)
	return &harness{t: t, engine: e, storage: st, sender: snd}
}

var testProfile = model.Profile{FirstName: "Ana", LastName: "Lopez", Username: "ana"}

func (h *harness) say(user, text string) Reply {
	h.t.Helper()
	before := h.sender.count()
	err := h.engine.HandleMessage(context.Background(), Message{
		UserID: user, ChatID: "chat-" + user, Profile: testProfile, Text: text,
	})
	require.NoError(h.t, err)
	if h.sender.count() == before {
		return Reply{}
	}
	return h.sender.last(h.t)
}

func (h *harness) photo(user, fileID string) Reply {
	h.t.Helper()
	before := h.sender.count()
	err := h.engine.HandleMessage(context.Background(), Message{
		UserID: user, ChatID: "chat-" + user, Profile: testProfile,
		Attachments: []Attachment{
			{FileID: fileID + "-small", Width: 90, Height: 90, Size: 1000},
			{FileID: fileID, Width: 1280, Height: 960, Size: 90000},
		},
	})
	require.NoError(h.t, err)
	if h.sender.count() == before {
		return Reply{}
	}
	return h.sender.last(h.t)
}

// gatedResolver blocks Resolve until release is closed.
type gatedResolver struct {
	entered chan struct{}
	release chan struct{}
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (r *gatedResolver) Resolve(ctx context.Context, a Attachment) (string, error) {
	select {
	case r.entered <- struct{}{}:
	default:
	}
	select {
	case <-r.release:
		return "https://files.test/" + a.FileID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (n *recordingNotifier) all() []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentNotification(nil), n.sent...)
}
