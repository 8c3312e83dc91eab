package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/pt"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	pt_translations "github.com/go-playground/validator/v10/translations/pt"

	"github.com/associacao-ensino/inscricoes-backend/internal/model"
)

// trans is the singleton Portuguese translator for validation errors.
var trans ut.Translator

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[_-][a-z0-9]+)*$`)

// customRule is a domain validation tag with its translated message.
type customRule struct {
	tag     string
	fn      govalidator.Func
	message string
}

var customRules = []customRule{
	{
		tag:     "slug",
		fn:      func(fl govalidator.FieldLevel) bool { return slugPattern.MatchString(fl.Field().String()) },
		message: "{0} deve conter apenas letras minúsculas, números, hífens ou underscores",
	},
	{
		tag:     "course_group",
		fn:      func(fl govalidator.FieldLevel) bool { return model.CourseGroup(fl.Field().String()).Valid() },
		message: "{0} não é um grupo de cursos válido",
	},
	{
		tag:     "period",
		fn:      func(fl govalidator.FieldLevel) bool { return model.Period(fl.Field().String()).Valid() },
		message: "{0} deve ser manha ou tarde",
	},
	{
		tag:     "role",
		fn:      func(fl govalidator.FieldLevel) bool { return model.Role(fl.Field().String()).Valid() },
		message: "{0} não é uma função válida",
	},
}

// Setup registers the validator with Portuguese translations and the domain
// rules on Gin's binding engine. Call once during application startup.
func Setup() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		register(v)
	}
}

func register(v *govalidator.Validate) {
	// Use the JSON tag name for field names in error messages, falling back to
	// the form tag for query and multipart structs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	ptLocale := pt.New()
	uni := ut.New(ptLocale, ptLocale)
	trans, _ = uni.GetTranslator("pt")
	_ = pt_translations.RegisterDefaultTranslations(v, trans)

	for _, rule := range customRules {
		rule := rule
		_ = v.RegisterValidation(rule.tag, rule.fn)
		_ = v.RegisterTranslation(rule.tag, trans,
			func(t ut.Translator) error { return t.Add(rule.tag, rule.message, true) },
			func(t ut.Translator, fe govalidator.FieldError) string {
				msg, _ := t.T(rule.tag, fe.Field())
				return msg
			},
		)
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindQuery binds and validates query-string filters into dst.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
