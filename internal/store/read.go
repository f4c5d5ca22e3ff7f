package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/boni/internal/model"
)

// Ministries returns all ministries ordered by id.
func (s *Store) Ministries(ctx context.Context) ([]model.Ministry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, whatsapp_link FROM ministries ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query ministries: %w", err)
	}
	defer rows.Close()

	out := []model.Ministry{}
	for rows.Next() {
		var m model.Ministry
		if err := rows.Scan(&m.ID, &m.Name, &m.WhatsAppLink); err != nil {
			return nil, fmt.Errorf("scan ministry: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ministries: %w", err)
	}
	return out, nil
}

// MinistryByName returns the ministry with the given name, compared
// case-insensitively. Returns model.ErrNotFound if none matches.
func (s *Store) MinistryByName(ctx context.Context, name string) (model.Ministry, error) {
	var m model.Ministry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, whatsapp_link FROM ministries WHERE name = ?
	`, name).Scan(&m.ID, &m.Name, &m.WhatsAppLink)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ministry{}, fmt.Errorf("ministry %q: %w", name, model.ErrNotFound)
	}
	if err != nil {
		return model.Ministry{}, fmt.Errorf("query ministry: %w", err)
	}
	return m, nil
}

// Leaders returns the leaders of a ministry ordered by name, active or not.
func (s *Store) Leaders(ctx context.Context, ministryID int64) ([]model.Leader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, ministry_id, active FROM leaders
		WHERE ministry_id = ?
		ORDER BY name ASC, id ASC
	`, ministryID)
	if err != nil {
		return nil, fmt.Errorf("query leaders: %w", err)
	}
	defer rows.Close()

	out := []model.Leader{}
	for rows.Next() {
		var l model.Leader
		if err := rows.Scan(&l.ID, &l.Name, &l.MinistryID, &l.Active); err != nil {
			return nil, fmt.Errorf("scan leader: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaders: %w", err)
	}
	return out, nil
}

// entityQueries maps each kind to its listing query. Columns after the
// shared (id, telegram_id, user_name, created_at) prefix are kind-specific.
var entityQueries = map[model.EntityKind]string{
	model.KindEnvelopeLoad: `SELECT id, telegram_id, user_name, created_at,
		ministry_name, mentor_name, leader_name, attendance, prayer_motive, offering, photo_url
		FROM envelope_loads`,
	model.KindInstituteEnrollment: `SELECT id, telegram_id, user_name, created_at,
		full_name, main_year, subjects, paid_registration, photo_registration, photo_monthly
		FROM institute_enrollments`,
	model.KindInstitutePayment: `SELECT id, telegram_id, user_name, created_at,
		full_name, photo_monthly
		FROM institute_payments`,
	model.KindPrayerRequest: `SELECT id, telegram_id, user_name, created_at,
		content, status
		FROM prayer_requests`,
	model.KindNewPerson: `SELECT id, telegram_id, recorded_by, created_at,
		details
		FROM new_people`,
}

// ListEntities returns every committed entity of kind ordered by creation
// time, then id. Returns an empty slice (not nil) when there are none.
func (s *Store) ListEntities(ctx context.Context, kind model.EntityKind) ([]model.Entity, error) {
	query, ok := entityQueries[kind]
	if !ok {
		return nil, fmt.Errorf("list entities: unknown kind %q", kind)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at ASC, id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	out := []model.Entity{}
	for rows.Next() {
		e, err := scanEntity(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return out, nil
}

// CountEntities returns the number of committed entities of kind.
func (s *Store) CountEntities(ctx context.Context, kind model.EntityKind) (int, error) {
	tables := map[model.EntityKind]string{
		model.KindEnvelopeLoad:        "envelope_loads",
		model.KindInstituteEnrollment: "institute_enrollments",
		model.KindInstitutePayment:    "institute_payments",
		model.KindPrayerRequest:       "prayer_requests",
		model.KindNewPerson:           "new_people",
	}
	table, ok := tables[kind]
	if !ok {
		return 0, fmt.Errorf("count entities: unknown kind %q", kind)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}

func scanEntity(kind model.EntityKind, rows *sql.Rows) (model.Entity, error) {
	var (
		base      model.Submission
		createdAt string
	)
	head := []any{&base.ID, &base.UserID, &base.UserName, &createdAt}
	finish := func(err error) (model.Submission, error) {
		if err != nil {
			return base, fmt.Errorf("scan %s: %w", kind, err)
		}
		ts, err := parseTime(createdAt)
		if err != nil {
			return base, err
		}
		base.CreatedAt = ts
		return base, nil
	}

	switch kind {
	case model.KindEnvelopeLoad:
		var e model.EnvelopeLoad
		b, err := finish(rows.Scan(append(head, &e.MinistryName, &e.MentorName, &e.LeaderName,
			&e.Attendance, &e.PrayerMotive, &e.Offering, &e.PhotoURL)...))
		e.Submission = b
		return e, err
	case model.KindInstituteEnrollment:
		var e model.InstituteEnrollment
		b, err := finish(rows.Scan(append(head, &e.FullName, &e.MainYear, &e.Subjects,
			&e.PaidRegistration, &e.PhotoRegistration, &e.PhotoMonthly)...))
		e.Submission = b
		return e, err
	case model.KindInstitutePayment:
		var e model.InstitutePayment
		b, err := finish(rows.Scan(append(head, &e.FullName, &e.PhotoMonthly)...))
		e.Submission = b
		return e, err
	case model.KindPrayerRequest:
		var e model.PrayerRequest
		b, err := finish(rows.Scan(append(head, &e.Content, &e.Status)...))
		e.Submission = b
		return e, err
	case model.KindNewPerson:
		var e model.NewPersonRecord
		b, err := finish(rows.Scan(append(head, &e.Details)...))
		e.Submission = b
		return e, err
	default:
		return nil, fmt.Errorf("scan: unknown kind %q", kind)
	}
}
