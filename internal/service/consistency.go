package service

import (
	"fmt"
	"strings"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
	"github.com/rs/zerolog"
)

// CheckStudentDataConsistency cross-checks a student against the course
// catalog and, when pair is not nil, against the pair it is assigned to.
// It has no side effects.
func CheckStudentDataConsistency(student *model.Student, pair *model.ClassPair, catalog CourseCatalog) model.ConsistencyResult {
	result := model.ConsistencyResult{Warnings: []string{}, Errors: []string{}}

	name := strings.TrimSpace(student.Name)
	code := strings.TrimSpace(student.CourseCode)

	if name == "" {
		result.Errors = append(result.Errors, "Nome do aluno em falta.")
	}
	if code == "" {
		result.Errors = append(result.Errors, "Código do curso em falta.")
	} else if _, ok := catalog[code]; !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("O curso %q não existe no catálogo.", code))
	}
	if strings.TrimSpace(student.IDNumber) == "" {
		result.Warnings = append(result.Warnings, "Número do BI em falta.")
	}
	if pair != nil && code != "" && !pair.HasCourse(code) {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"O curso %q do aluno não pertence ao par %q (cursos: %s).",
			code, pair.Name, strings.Join(pair.Courses, ", "),
		))
	}

	result.IsConsistent = len(result.Errors) == 0 && len(result.Warnings) == 0
	return result
}

// LogConsistency writes a check result to log under a caller supplied
// context label. Consistent results are logged at debug level.
func LogConsistency(log zerolog.Logger, context string, result model.ConsistencyResult) {
	if result.IsConsistent {
		log.Debug().Str("context", context).Msg("student data consistent")
		return
	}
	for _, e := range result.Errors {
		log.Error().Str("context", context).Str("check", "consistency").Msg(e)
	}
	for _, w := range result.Warnings {
		log.Warn().Str("context", context).Str("check", "consistency").Msg(w)
	}
}
