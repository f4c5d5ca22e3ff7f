package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
)

// Commit materializes the completed payload of sess as the entity selected
// by f and persists it through the storage port.
//
// The payload is first checked against the catalog path it took: a missing
// key fails the commit instead of storing a partial record. Prayer-request
// and new-person commits trigger a background notification whose failure
// never affects the commit.
func (e *Engine) Commit(ctx context.Context, sess model.Session, f *flow.Flow) (model.Entity, error) {
	if f.ReadOnly() {
		return nil, fmt.Errorf("flow %s commits no entity", f.ID)
	}
	if _, err := e.catalog.RequiredKeys(f.ID, sess.Data); err != nil {
		return nil, &DispatchError{
			Code:    ErrCodeMissingKey,
			Message: "payload does not match flow path",
			UserID:  sess.UserID,
			Step:    sess.Step,
			Flow:    f.ID,
			Err:     err,
		}
	}

	base := model.Submission{
		ID:        e.ids.Generate(),
		UserID:    sess.UserID,
		UserName:  sess.Profile.DisplayName(),
		CreatedAt: e.clock.Now().UTC(),
	}
	ent, err := BuildEntity(f.Entity(sess.Data), base, sess.Data)
	if err != nil {
		return nil, err
	}

	if err := e.persist(ctx, ent); err != nil {
		return nil, &DispatchError{
			Code:    ErrCodeCommitFailed,
			Message: fmt.Sprintf("persist %s", ent.Kind()),
			UserID:  sess.UserID,
			Step:    sess.Step,
			Flow:    f.ID,
			Err:     err,
		}
	}

	if f.Notify && e.notifier != nil {
		e.notifyAsync(ctx, ent)
	}
	return ent, nil
}

// BuildEntity maps a completed payload onto the entity of the given kind.
func BuildEntity(kind model.EntityKind, base model.Submission, data model.Data) (model.Entity, error) {
	switch kind {
	case model.KindEnvelopeLoad:
		return model.EnvelopeLoad{
			Submission:   base,
			MinistryName: data[flow.KeyMinistry],
			MentorName:   data[flow.KeyMentor],
			LeaderName:   data[flow.KeyLeader],
			Attendance:   data[flow.KeyAttendance],
			PrayerMotive: data[flow.KeyPrayerMotive],
			Offering:     data[flow.KeyOffering],
			PhotoURL:     data[flow.KeyPhoto],
		}, nil
	case model.KindInstituteEnrollment:
		return model.InstituteEnrollment{
			Submission:        base,
			FullName:          data[flow.KeyFullName],
			MainYear:          data[flow.KeyYear],
			Subjects:          data[flow.KeySubjects],
			PaidRegistration:  data[flow.KeyPaidRegistration],
			PhotoRegistration: data[flow.KeyPhotoRegistration],
			PhotoMonthly:      data[flow.KeyPhotoMonthly],
		}, nil
	case model.KindInstitutePayment:
		return model.InstitutePayment{
			Submission:   base,
			FullName:     data[flow.KeyFullName],
			PhotoMonthly: data[flow.KeyPhotoMonthly],
		}, nil
	case model.KindPrayerRequest:
		return model.PrayerRequest{
			Submission: base,
			Content:    data[flow.KeyContent],
			Status:     model.PrayerStatusPending,
		}, nil
	case model.KindNewPerson:
		return model.NewPersonRecord{
			Submission: base,
			Details:    data[flow.KeyDetails],
		}, nil
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}
}

func (e *Engine) persist(ctx context.Context, ent model.Entity) error {
	switch v := ent.(type) {
	case model.EnvelopeLoad:
		return e.storage.CreateEnvelopeLoad(ctx, v)
	case model.InstituteEnrollment:
		return e.storage.CreateInstituteEnrollment(ctx, v)
	case model.InstitutePayment:
		return e.storage.CreateInstitutePayment(ctx, v)
	case model.PrayerRequest:
		return e.storage.CreatePrayerRequest(ctx, v)
	case model.NewPersonRecord:
		return e.storage.CreateNewPerson(ctx, v)
	default:
		return errors.New("unsupported entity type")
	}
}

func (e *Engine) notifyAsync(ctx context.Context, ent model.Entity) {
	subject, body := notification(ent)
	base := context.WithoutCancel(ctx)

	e.background.Add(1)
	go func() {
		defer e.background.Done()
		ctx, cancel := context.WithTimeout(base, e.notifyTimeout)
		defer cancel()
		if err := e.notifier.Notify(ctx, subject, body); err != nil {
			e.logger.Warn("notification failed",
				"kind", string(ent.Kind()),
				"id", ent.Base().ID,
				"error", err,
			)
		}
	}()
}
