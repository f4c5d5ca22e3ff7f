package flow

import "strings"

// Institute entry options.
const (
	OptionFullYear = "Inscripción año completo"
	OptionSubject  = "Inscripción a materia específica"
	OptionPayment  = "Enviar comprobante de cuota"
)

// YearPlan is one year of the institute's course catalog.
type YearPlan struct {
	Name     string
	Subjects []string
}

// Years is the compiled-in course catalog.
var Years = []YearPlan{
	{
		Name: "Primer Año",
		Subjects: []string{
			"Introducción Bíblica",
			"Doctrina Básica",
			"Vida Cristiana",
			"Evangelismo",
		},
	},
	{
		Name: "Segundo Año",
		Subjects: []string{
			"Pentateuco",
			"Hermenéutica",
			"Historia de la Iglesia",
			"Homilética",
		},
	},
	{
		Name: "Tercer Año",
		Subjects: []string{
			"Libros Proféticos",
			"Epístolas Paulinas",
			"Teología Sistemática",
			"Liderazgo Ministerial",
		},
	},
}

// YearNames returns the year labels in catalog order.
func YearNames() []string {
	names := make([]string, len(Years))
	for i, y := range Years {
		names[i] = y.Name
	}
	return names
}

// SubjectsFor returns the subjects of year, or nil for an unknown year.
func SubjectsFor(year string) []string {
	for _, y := range Years {
		if strings.EqualFold(Normalize(y.Name), Normalize(year)) {
			out := make([]string, len(y.Subjects))
			copy(out, y.Subjects)
			return out
		}
	}
	return nil
}

// FullYearSubjects is the subjects value committed for a full-year enrollment.
func FullYearSubjects(year string) string {
	return strings.Join(SubjectsFor(year), ", ")
}
