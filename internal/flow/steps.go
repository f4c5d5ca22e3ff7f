package flow

import (
	"context"

	"github.com/roach88/boni/internal/model"
)

// Step IDs. These are the persisted state names.
const (
	EnvelopeMinistry     model.StepID = "envelope_ministry"
	EnvelopeMentor       model.StepID = "envelope_mentor"
	EnvelopeLeader       model.StepID = "envelope_leader"
	EnvelopeAttendance   model.StepID = "envelope_attendance"
	EnvelopePrayerMotive model.StepID = "envelope_prayer_motive"
	EnvelopeOffering     model.StepID = "envelope_offering"
	EnvelopePhoto        model.StepID = "envelope_photo"
	EnvelopeConfirm      model.StepID = "envelope_confirm"

	InstituteOption            model.StepID = "institute_option"
	InstituteName              model.StepID = "institute_name"
	InstituteYear              model.StepID = "institute_year"
	InstituteSubject           model.StepID = "institute_subject"
	InstitutePaidRegistration  model.StepID = "institute_paid_registration"
	InstituteRegistrationPhoto model.StepID = "institute_registration_photo"
	InstituteMonthlyPhoto      model.StepID = "institute_monthly_photo"

	PrayerContent    model.StepID = "prayer_request"
	NewPersonDetails model.StepID = "new_person_details"

	DirectoryMinistry model.StepID = "consulting_ministry"
)

// Session keys.
const (
	KeyMinistry     = "ministry_name"
	KeyMentor       = "mentor_name"
	KeyLeader       = "leader_name"
	KeyAttendance   = "attendance"
	KeyPrayerMotive = "prayer_motive"
	KeyOffering     = "offering"
	KeyPhoto        = "photo_url"
	KeyConfirmed    = "confirmed"

	KeyOption            = "option"
	KeyFullName          = "full_name"
	KeyYear              = "main_year"
	KeySubjects          = "subjects"
	KeyPaidRegistration  = "paid_registration"
	KeyPhotoRegistration = "photo_registration"
	KeyPhotoMonthly      = "photo_monthly"

	KeyContent = "content"
	KeyDetails = "details"
)

func static(options ...string) OptionsFunc {
	return func(context.Context, Reference, model.Data) ([]string, error) {
		out := make([]string, len(options))
		copy(out, options)
		return out, nil
	}
}

func ministries(ctx context.Context, ref Reference, _ model.Data) ([]string, error) {
	if ref == nil {
		return nil, nil
	}
	return ref.MinistryNames(ctx)
}

func subjectsOfYear(_ context.Context, _ Reference, data model.Data) ([]string, error) {
	return SubjectsFor(data[KeyYear]), nil
}

func yesNo() OptionsFunc { return static(Yes, No) }

func defaultFlows() []Flow {
	return []Flow{
		{
			ID:     Envelope,
			Label:  LabelEnvelope,
			Start:  EnvelopeMinistry,
			Entity: constant(model.KindEnvelopeLoad),
		},
		{
			ID:     Prayer,
			Label:  LabelPrayer,
			Start:  PrayerContent,
			Entity: constant(model.KindPrayerRequest),
			Notify: true,
		},
		{
			ID:    Institute,
			Label: LabelInstitute,
			Start: InstituteOption,
			Entity: func(data model.Data) model.EntityKind {
				if data[KeyOption] == OptionPayment {
					return model.KindInstitutePayment
				}
				return model.KindInstituteEnrollment
			},
		},
		{
			ID:     NewPerson,
			Label:  LabelNewPerson,
			Start:  NewPersonDetails,
			Entity: constant(model.KindNewPerson),
			Notify: true,
		},
		{
			ID:        LeaderDirectory,
			Label:     LabelLeaders,
			Start:     DirectoryMinistry,
			AdminOnly: true,
		},
	}
}

func constant(kind model.EntityKind) func(model.Data) model.EntityKind {
	return func(model.Data) model.EntityKind { return kind }
}

func defaultSteps() []Step {
	return []Step{
		// Envelope
		{
			ID: EnvelopeMinistry, Flow: Envelope, Key: KeyMinistry,
			Prompt:   "¿En qué ministerio estás liderando?",
			Input:    InputChoice,
			Options:  ministries,
			Branches: []model.StepID{EnvelopeMentor},
		},
		{
			ID: EnvelopeMentor, Flow: Envelope, Key: KeyMentor,
			Prompt:   "¿Quién es tu mentor?",
			Input:    InputText,
			Branches: []model.StepID{EnvelopeLeader},
		},
		{
			ID: EnvelopeLeader, Flow: Envelope, Key: KeyLeader,
			Prompt:   "¿Quién es el líder responsable del sobre?",
			Input:    InputText,
			Branches: []model.StepID{EnvelopeAttendance},
		},
		{
			ID: EnvelopeAttendance, Flow: Envelope, Key: KeyAttendance,
			Prompt:   "¿Cuántas personas asistieron?",
			Input:    InputText,
			Branches: []model.StepID{EnvelopePrayerMotive},
		},
		{
			ID: EnvelopePrayerMotive, Flow: Envelope, Key: KeyPrayerMotive,
			Prompt:   "¿Hay algún motivo de oración? Escribí \"ninguno\" si no hay.",
			Input:    InputText,
			Branches: []model.StepID{EnvelopeOffering},
		},
		{
			ID: EnvelopeOffering, Flow: Envelope, Key: KeyOffering,
			Prompt:   "¿Cuál es el monto de la ofrenda?",
			Input:    InputText,
			Branches: []model.StepID{EnvelopePhoto},
		},
		{
			ID: EnvelopePhoto, Flow: Envelope, Key: KeyPhoto,
			Prompt:   "📷 Enviá una foto del sobre.",
			Input:    InputAttachment,
			Branches: []model.StepID{EnvelopeConfirm},
		},
		{
			ID: EnvelopeConfirm, Flow: Envelope, Key: KeyConfirmed,
			Prompt:   "¿Confirmás la carga del sobre?",
			Input:    InputChoice,
			Options:  yesNo(),
			Branches: []model.StepID{Done, Discard},
			Next: func(data model.Data) model.StepID {
				if data[KeyConfirmed] == Yes {
					return Done
				}
				return Discard
			},
		},

		// Institute
		{
			ID: InstituteOption, Flow: Institute, Key: KeyOption,
			Prompt:   "📚 Instituto Horeb. ¿Qué querés hacer?",
			Input:    InputChoice,
			Options:  static(OptionFullYear, OptionSubject, OptionPayment),
			Branches: []model.StepID{InstituteName},
		},
		{
			ID: InstituteName, Flow: Institute, Key: KeyFullName,
			Prompt:   "¿Cuál es el nombre completo del alumno?",
			Input:    InputText,
			Branches: []model.StepID{InstituteYear, InstituteMonthlyPhoto},
			Next: func(data model.Data) model.StepID {
				if data[KeyOption] == OptionPayment {
					return InstituteMonthlyPhoto
				}
				return InstituteYear
			},
		},
		{
			ID: InstituteYear, Flow: Institute, Key: KeyYear,
			Prompt:  "¿Qué año cursa?",
			Input:   InputChoice,
			Options: static(YearNames()...),
			Derive: func(data model.Data) model.Data {
				if data[KeyOption] == OptionFullYear {
					return model.Data{KeySubjects: FullYearSubjects(data[KeyYear])}
				}
				return nil
			},
			DerivedKeys: []string{KeySubjects},
			Branches:    []model.StepID{InstituteSubject, InstitutePaidRegistration},
			Next: func(data model.Data) model.StepID {
				if data[KeyOption] == OptionSubject {
					return InstituteSubject
				}
				return InstitutePaidRegistration
			},
		},
		{
			ID: InstituteSubject, Flow: Institute, Key: KeySubjects,
			Prompt:   "¿Qué materia querés agregar?",
			Input:    InputChoice,
			Options:  subjectsOfYear,
			Branches: []model.StepID{InstitutePaidRegistration},
		},
		{
			ID: InstitutePaidRegistration, Flow: Institute, Key: KeyPaidRegistration,
			Prompt:   "¿Ya abonaste la matrícula?",
			Input:    InputChoice,
			Options:  yesNo(),
			Branches: []model.StepID{InstituteRegistrationPhoto, InstituteMonthlyPhoto},
			Next: func(data model.Data) model.StepID {
				if data[KeyPaidRegistration] == No {
					return InstituteRegistrationPhoto
				}
				return InstituteMonthlyPhoto
			},
		},
		{
			ID: InstituteRegistrationPhoto, Flow: Institute, Key: KeyPhotoRegistration,
			Prompt:   "📷 Enviá el comprobante de pago de la matrícula.",
			Input:    InputAttachment,
			Branches: []model.StepID{InstituteMonthlyPhoto},
		},
		{
			ID: InstituteMonthlyPhoto, Flow: Institute, Key: KeyPhotoMonthly,
			Prompt:   "📷 Enviá el comprobante de pago de la cuota mensual.",
			Input:    InputAttachment,
			Branches: []model.StepID{Done},
		},

		// Single-step flows
		{
			ID: PrayerContent, Flow: Prayer, Key: KeyContent,
			Prompt:   "🙏 ¿Cuál es el motivo de tu petición de oración?",
			Input:    InputText,
			Branches: []model.StepID{Done},
		},
		{
			ID: NewPersonDetails, Flow: NewPerson, Key: KeyDetails,
			Prompt:   "🙋 Contanos los datos de la persona nueva (nombre, teléfono y cómo llegó):",
			Input:    InputText,
			Branches: []model.StepID{Done},
		},
		{
			ID: DirectoryMinistry, Flow: LeaderDirectory, Key: KeyMinistry,
			Prompt:   "Seleccioná un ministerio:",
			Input:    InputChoice,
			Options:  ministries,
			Branches: []model.StepID{Done},
		},
	}
}
