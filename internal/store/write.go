package store

import (
	"context"
	"fmt"

	"github.com/roach88/boni/internal/model"
)

// CreateEnvelopeLoad inserts a committed envelope load.
// Entities are insert-only: a duplicate id is an error.
func (s *Store) CreateEnvelopeLoad(ctx context.Context, e model.EnvelopeLoad) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO envelope_loads
		(id, telegram_id, user_name, ministry_name, mentor_name, leader_name,
		 attendance, prayer_motive, offering, photo_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.UserID, e.UserName, e.MinistryName, e.MentorName, e.LeaderName,
		e.Attendance, e.PrayerMotive, e.Offering, e.PhotoURL, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("write envelope load: %w", err)
	}
	return nil
}

// CreateInstituteEnrollment inserts a committed enrollment.
func (s *Store) CreateInstituteEnrollment(ctx context.Context, e model.InstituteEnrollment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO institute_enrollments
		(id, telegram_id, user_name, full_name, main_year, subjects,
		 paid_registration, photo_registration, photo_monthly, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.UserID, e.UserName, e.FullName, e.MainYear, e.Subjects,
		e.PaidRegistration, e.PhotoRegistration, e.PhotoMonthly, formatTime(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("write institute enrollment: %w", err)
	}
	return nil
}

// CreateInstitutePayment inserts a committed monthly payment proof.
func (s *Store) CreateInstitutePayment(ctx context.Context, e model.InstitutePayment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO institute_payments
		(id, telegram_id, user_name, full_name, photo_monthly, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.UserName, e.FullName, e.PhotoMonthly, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("write institute payment: %w", err)
	}
	return nil
}

// CreatePrayerRequest inserts a committed prayer request.
// An empty status is stored as pending.
func (s *Store) CreatePrayerRequest(ctx context.Context, e model.PrayerRequest) error {
	status := e.Status
	if status == "" {
		status = model.PrayerStatusPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prayer_requests
		(id, telegram_id, user_name, content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.UserName, e.Content, status, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("write prayer request: %w", err)
	}
	return nil
}

// CreateNewPerson inserts a committed new-person record.
func (s *Store) CreateNewPerson(ctx context.Context, e model.NewPersonRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO new_people
		(id, telegram_id, recorded_by, details, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.UserID, e.UserName, e.Details, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("write new person: %w", err)
	}
	return nil
}

// UpsertMinistry inserts a ministry or updates the WhatsApp link of an
// existing one with the same name (case-insensitive).
func (s *Store) UpsertMinistry(ctx context.Context, name, whatsappLink string) (model.Ministry, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ministries (name, whatsapp_link) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET whatsapp_link = excluded.whatsapp_link
	`, name, whatsappLink)
	if err != nil {
		return model.Ministry{}, fmt.Errorf("write ministry %q: %w", name, err)
	}
	return s.MinistryByName(ctx, name)
}

// UpsertLeader inserts a leader of ministryID or updates the active flag of
// an existing one with the same name.
func (s *Store) UpsertLeader(ctx context.Context, ministryID int64, name string, active bool) (model.Leader, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leaders (name, ministry_id, active) VALUES (?, ?, ?)
		ON CONFLICT(ministry_id, name) DO UPDATE SET active = excluded.active
	`, name, ministryID, active)
	if err != nil {
		return model.Leader{}, fmt.Errorf("write leader %q: %w", name, err)
	}

	var l model.Leader
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, ministry_id, active FROM leaders WHERE ministry_id = ? AND name = ?
	`, ministryID, name).Scan(&l.ID, &l.Name, &l.MinistryID, &l.Active)
	if err != nil {
		return model.Leader{}, fmt.Errorf("read leader %q: %w", name, err)
	}
	return l, nil
}
