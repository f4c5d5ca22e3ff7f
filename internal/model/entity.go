package model

import "time"

// EntityKind names one of the committed record types.
type EntityKind string

const (
	KindEnvelopeLoad        EntityKind = "envelope_load"
	KindInstituteEnrollment EntityKind = "institute_enrollment"
	KindInstitutePayment    EntityKind = "institute_payment"
	KindPrayerRequest       EntityKind = "prayer_request"
	KindNewPerson           EntityKind = "new_person"
)

// EntityKinds lists every committed kind in a stable order.
var EntityKinds = []EntityKind{
	KindEnvelopeLoad,
	KindInstituteEnrollment,
	KindInstitutePayment,
	KindPrayerRequest,
	KindNewPerson,
}

// Entity is implemented by every committed record.
type Entity interface {
	Kind() EntityKind
	Base() Submission
}

// Submission holds the fields every committed record carries.
type Submission struct {
	ID        string    `json:"id"`
	UserID    string    `json:"telegram_id"`
	UserName  string    `json:"user_name"`
	CreatedAt time.Time `json:"created_at"`
}

// EnvelopeLoad is an offering envelope logged by a ministry leader.
type EnvelopeLoad struct {
	Submission
	MinistryName string `json:"ministry_name"`
	MentorName   string `json:"mentor_name"`
	LeaderName   string `json:"leader_name"`
	Attendance   string `json:"attendance"`
	PrayerMotive string `json:"prayer_motive"`
	Offering     string `json:"offering"`
	PhotoURL     string `json:"photo_url"`
}

// InstituteEnrollment registers a student for a year or a single subject.
type InstituteEnrollment struct {
	Submission
	FullName          string `json:"full_name"`
	MainYear          string `json:"main_year"`
	Subjects          string `json:"subjects"`
	PaidRegistration  string `json:"paid_registration"`
	PhotoRegistration string `json:"photo_registration,omitempty"`
	PhotoMonthly      string `json:"photo_monthly"`
}

// InstitutePayment is a monthly fee proof.
type InstitutePayment struct {
	Submission
	FullName     string `json:"full_name"`
	PhotoMonthly string `json:"photo_monthly"`
}

// PrayerRequest is a free-text prayer request.
type PrayerRequest struct {
	Submission
	Content string `json:"content"`
	Status  string `json:"status"`
}

// NewPersonRecord registers someone new to the community.
// UserName on the embedded Submission is who recorded it.
type NewPersonRecord struct {
	Submission
	Details string `json:"details"`
}

func (EnvelopeLoad) Kind() EntityKind        { return KindEnvelopeLoad }
func (InstituteEnrollment) Kind() EntityKind { return KindInstituteEnrollment }
func (InstitutePayment) Kind() EntityKind    { return KindInstitutePayment }
func (PrayerRequest) Kind() EntityKind       { return KindPrayerRequest }
func (NewPersonRecord) Kind() EntityKind     { return KindNewPerson }

func (e EnvelopeLoad) Base() Submission        { return e.Submission }
func (e InstituteEnrollment) Base() Submission { return e.Submission }
func (e InstitutePayment) Base() Submission    { return e.Submission }
func (e PrayerRequest) Base() Submission       { return e.Submission }
func (e NewPersonRecord) Base() Submission     { return e.Submission }

// PrayerStatusPending is the status of a freshly committed prayer request.
const PrayerStatusPending = "pending"

// Ministry is a reference record used to build choice keyboards.
type Ministry struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	WhatsAppLink string `json:"whatsapp_link,omitempty"`
}

// Leader belongs to a ministry.
type Leader struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	MinistryID int64  `json:"ministry_id"`
	Active     bool   `json:"active"`
}
