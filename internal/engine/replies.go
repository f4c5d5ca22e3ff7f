package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/boni/internal/model"
)

// Fixed reply texts.
const (
	TextGreeting        = "Hola Soy BONI 🤍\n¿En qué te puedo ayudar hoy?"
	TextCancelled       = "Proceso cancelado. Gracias por comunicarte con BONI 🙌"
	TextAdminGranted    = "✅ Acceso de administrador concedido."
	TextNoAccess        = "No tenés acceso a esta función."
	TextUnknownCommand  = "No entendí ese comando. Usá el menú 👇"
	TextUnknownMinistry = "Ministerio no encontrado. Seleccioná uno del teclado."
	TextDiscarded       = "Carga descartada. No se guardó ningún dato."
	TextCommitFailed    = "⚠️ No pudimos guardar los datos. Enviá tu respuesta de nuevo para reintentar."
	TextNoLeaders       = "No hay líderes registrados."
	TextAnswerMissing   = "⚠️ Falta un dato de esta carga. Respondé de nuevo esta pregunta."
	TextAnswerNotSaved  = "⚠️ No pudimos guardar tu respuesta. Enviala de nuevo."

	TextReferenceUnavailable = "⚠️ No pudimos consultar los datos. Intentá de nuevo en unos minutos."
)

var commitTexts = map[model.EntityKind]string{
	model.KindEnvelopeLoad:        "✅ Sobre cargado correctamente.",
	model.KindInstituteEnrollment: "✅ Inscripción registrada. ¡Bendiciones en este año de estudio!",
	model.KindInstitutePayment:    "✅ Comprobante de cuota recibido.",
	model.KindPrayerRequest:       "🙏 Gracias por compartir tu petición.\nVamos a estar orando por vos 🤍",
	model.KindNewPerson:           "🙌 ¡Gracias! Registramos a la persona nueva.",
}

// CommitText returns the confirmation sent after kind is committed.
func CommitText(kind model.EntityKind) string {
	if t, ok := commitTexts[kind]; ok {
		return t
	}
	return "✅ Datos guardados."
}

// markdownEscaper escapes the characters legacy Telegram Markdown treats as
// entity delimiters.
var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// DirectoryText renders the leader list of a ministry as Markdown. Stored
// names are escaped so they render literally.
func DirectoryText(m model.Ministry, leaders []model.Leader) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Líderes del ministerio %s:\n\n", markdownEscaper.Replace(m.Name))
	if len(leaders) == 0 {
		b.WriteString(TextNoLeaders)
	}
	for _, l := range leaders {
		fmt.Fprintf(&b, "• %s\n", markdownEscaper.Replace(l.Name))
	}
	if m.WhatsAppLink != "" {
		fmt.Fprintf(&b, "\n📲 [WhatsApp](%s)", m.WhatsAppLink)
	}
	return b.String()
}

// notification renders the subject and body sent for a committed entity.
func notification(e model.Entity) (subject, body string) {
	base := e.Base()
	switch v := e.(type) {
	case model.PrayerRequest:
		return "Nueva petición de oración",
			fmt.Sprintf("%s (%s) envió una petición:\n\n%s", base.UserName, base.UserID, v.Content)
	case model.NewPersonRecord:
		return "Nueva persona registrada",
			fmt.Sprintf("%s (%s) registró a una persona nueva:\n\n%s", base.UserName, base.UserID, v.Details)
	default:
		return fmt.Sprintf("Nuevo registro: %s", e.Kind()),
			fmt.Sprintf("%s (%s) completó %s", base.UserName, base.UserID, e.Kind())
	}
}
