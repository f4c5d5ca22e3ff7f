package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/boni/internal/model"
)

func TestCreateEntities_RoundTripThroughListing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	env := model.EnvelopeLoad{
		Submission:   submission("e1", 0),
		MinistryName: "MINIST JOVENES", MentorName: "Pablo", LeaderName: "Ana",
		Attendance: "12", PrayerMotive: "ninguno", Offering: "1500",
		PhotoURL: "https://files.test/p",
	}
	enr := model.InstituteEnrollment{
		Submission: submission("i1", time.Second),
		FullName:   "Juan Pérez", MainYear: "Tercer Año", Subjects: "A, B",
		PaidRegistration: "NO", PhotoRegistration: "r", PhotoMonthly: "m",
	}
	pay := model.InstitutePayment{Submission: submission("p1", 0), FullName: "Juan", PhotoMonthly: "m"}
	pr := model.PrayerRequest{Submission: submission("r1", 0), Content: "Por la familia"}
	np := model.NewPersonRecord{Submission: submission("n1", 0), Details: "Lucía"}

	require.NoError(t, s.CreateEnvelopeLoad(ctx, env))
	require.NoError(t, s.CreateInstituteEnrollment(ctx, enr))
	require.NoError(t, s.CreateInstitutePayment(ctx, pay))
	require.NoError(t, s.CreatePrayerRequest(ctx, pr))
	require.NoError(t, s.CreateNewPerson(ctx, np))

	got, err := s.ListEntities(ctx, model.KindEnvelopeLoad)
	require.NoError(t, err)
	assert.Equal(t, []model.Entity{env}, got)

	got, err = s.ListEntities(ctx, model.KindInstituteEnrollment)
	require.NoError(t, err)
	assert.Equal(t, []model.Entity{enr}, got)

	got, err = s.ListEntities(ctx, model.KindInstitutePayment)
	require.NoError(t, err)
	assert.Equal(t, []model.Entity{pay}, got)

	got, err = s.ListEntities(ctx, model.KindPrayerRequest)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.PrayerStatusPending, got[0].(model.PrayerRequest).Status, "empty status stored as pending")

	got, err = s.ListEntities(ctx, model.KindNewPerson)
	require.NoError(t, err)
	assert.Equal(t, []model.Entity{np}, got)
}

func TestCreateEntity_DuplicateIDFails(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	pr := model.PrayerRequest{Submission: submission("dup", 0), Content: "x"}
	require.NoError(t, s.CreatePrayerRequest(ctx, pr))
	assert.Error(t, s.CreatePrayerRequest(ctx, pr))

	n, err := s.CountEntities(ctx, model.KindPrayerRequest)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsertMinistry(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	m, err := s.UpsertMinistry(ctx, "Horeb", "https://wa.me/1")
	require.NoError(t, err)
	assert.NotZero(t, m.ID)

	again, err := s.UpsertMinistry(ctx, "horeb", "https://wa.me/2")
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID, "names are unique regardless of case")
	assert.Equal(t, "https://wa.me/2", again.WhatsAppLink)

	list, err := s.Ministries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsertLeader(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	m, err := s.UpsertMinistry(ctx, "Espigas", "")
	require.NoError(t, err)

	l, err := s.UpsertLeader(ctx, m.ID, "Maria Gomez", true)
	require.NoError(t, err)
	assert.True(t, l.Active)

	l2, err := s.UpsertLeader(ctx, m.ID, "Maria Gomez", false)
	require.NoError(t, err)
	assert.Equal(t, l.ID, l2.ID)
	assert.False(t, l2.Active)
}

func TestUpsertLeader_UnknownMinistry(t *testing.T) {
	s := createTestStore(t)
	_, err := s.UpsertLeader(context.Background(), 999, "Nadie", true)
	assert.Error(t, err, "foreign key enforced")
}
