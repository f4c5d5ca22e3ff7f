package engine

import (
	"context"
	"time"

	"github.com/roach88/boni/internal/model"
)

// SessionStore persists per-user sessions.
//
// GetSession reports an absent session with found == false and a nil error.
// CreateSession is idempotent: when two creates race, both return the
// surviving record. SetStep moves a session to step and shallow-merges merge
// into its payload; moving to model.Idle clears the payload first.
type SessionStore interface {
	GetSession(ctx context.Context, userID string) (sess model.Session, found bool, err error)
	CreateSession(ctx context.Context, userID string, profile model.Profile) (model.Session, error)
	SetStep(ctx context.Context, userID string, step model.StepID, merge model.Data) (model.Session, error)
	SetAccess(ctx context.Context, userID string, level model.AccessLevel) (model.Session, error)
}

// EntityWriter persists committed entities. Records are never updated.
type EntityWriter interface {
	CreateEnvelopeLoad(ctx context.Context, e model.EnvelopeLoad) error
	CreateInstituteEnrollment(ctx context.Context, e model.InstituteEnrollment) error
	CreateInstitutePayment(ctx context.Context, e model.InstitutePayment) error
	CreatePrayerRequest(ctx context.Context, e model.PrayerRequest) error
	CreateNewPerson(ctx context.Context, e model.NewPersonRecord) error
}

// ReferenceReader reads ministry and leader reference data.
// MinistryByName returns model.ErrNotFound for an unknown name.
type ReferenceReader interface {
	Ministries(ctx context.Context) ([]model.Ministry, error)
	MinistryByName(ctx context.Context, name string) (model.Ministry, error)
	Leaders(ctx context.Context, ministryID int64) ([]model.Leader, error)
}

// Storage is the full storage port. Both the relational and the spreadsheet
// backends implement it; the engine assumes no transactional semantics
// across calls.
type Storage interface {
	SessionStore
	EntityWriter
	ReferenceReader
}

// Sender delivers outbound replies to the chat transport.
type Sender interface {
	Send(ctx context.Context, r Reply) error
}

// AttachmentResolver turns an uploaded attachment into a durable reference.
// It may block on network I/O.
type AttachmentResolver interface {
	Resolve(ctx context.Context, a Attachment) (string, error)
}

// Notifier receives fire-and-forget notifications.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Recorder observes dispatch outcomes. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	MessageReceived(step model.StepID)
	FlowStarted(flow string)
	EntityCommitted(kind model.EntityKind)
	CommitFailed(kind model.EntityKind)
	ObserveDispatch(d time.Duration)
}

// fileIDResolver keeps the transport's own attachment id.
type fileIDResolver struct{}

func (fileIDResolver) Resolve(_ context.Context, a Attachment) (string, error) {
	return a.FileID, nil
}

type nopRecorder struct{}

func (nopRecorder) MessageReceived(model.StepID)     {}
func (nopRecorder) FlowStarted(string)               {}
func (nopRecorder) EntityCommitted(model.EntityKind) {}
func (nopRecorder) CommitFailed(model.EntityKind)    {}
func (nopRecorder) ObserveDispatch(time.Duration)    {}
