package flow

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Global commands honored in any state.
const (
	CommandStart     = "/start"
	CommandCancel    = "Terminar"
	CommandCancelAlt = "❌ Cancelar"
)

// Menu labels.
const (
	LabelEnvelope  = "Cargar sobre de espiga"
	LabelPrayer    = "🙏 Enviar petición de oración"
	LabelInstitute = "📚 Instituto Horeb"
	LabelNewPerson = "🙋 Registrar persona nueva"
	LabelLeaders   = "Consultar líderes"
)

// Yes/no answers.
const (
	Yes = "SI"
	No  = "NO"
)

// Normalize trims surrounding whitespace and applies NFC so labels typed on
// different keyboards compare equal.
func Normalize(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}

// IsReset reports whether text is the reset-to-idle command.
func IsReset(text string) bool {
	return Normalize(text) == CommandStart
}

// IsCancel reports whether text is a cancel-current-flow command.
func IsCancel(text string) bool {
	t := Normalize(text)
	return t == CommandCancel || t == CommandCancelAlt
}

// MatchOption returns the option equal to text, ignoring case and
// normalization differences.
func MatchOption(options []string, text string) (string, bool) {
	t := Normalize(text)
	for _, opt := range options {
		if strings.EqualFold(Normalize(opt), t) {
			return opt, true
		}
	}
	return "", false
}
