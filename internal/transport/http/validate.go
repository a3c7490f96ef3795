package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"quiz-progress-service/internal/domain"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type submissionRequest struct {
	Answers map[string]string `json:"answers" validate:"required,min=1,dive,keys,required,endkeys,max=256"`
	Score   *int              `json:"score" validate:"omitempty,min=0,max=100"`
}

func (r submissionRequest) submission() domain.Submission {
	return domain.Submission{Answers: r.Answers, Score: r.Score}
}

type examSubmissionRequest struct {
	CourseSlug string `json:"courseSlug" validate:"required"`
	// Passed is accepted for compatibility and ignored; the server decides.
	Passed *bool `json:"passed"`
	submissionRequest
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError(fmt.Errorf("invalid JSON body: %w", err))
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(err)
	}
	fields := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, domain.FieldError{
			Field: fieldPath(fe.Namespace()),
			Error: fe.Translate(translator),
		})
	}
	return domain.NewValidationError(nil, fields...)
}

// fieldPath drops the root struct name and any embedded struct from a
// validator namespace.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	out := parts[:0]
	for i, p := range parts {
		if i == 0 || p == "submissionRequest" || p == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, ".")
}

// indexParam parses a non-negative path index.
func indexParam(raw, field string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(nil, domain.FieldError{Field: field, Error: field + " must be a non-negative integer"})
	}
	return n, nil
}
