package violation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-admin/core"
)

var (
	degreeTag  = "degree"
	degreeText = "degree must be between 1 and 4"
)

// InitValidators registers the violation validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(degreeTag, degreeValidation)
	core.RegisterCustomTranslation(validate, translator, degreeTag, degreeText)
}

// NewValidator returns a validator ready to validate violation payloads.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate, translator
}

// degreeValidation checks that the degree is one of the known severity levels.
func degreeValidation(fl validator.FieldLevel) bool {
	return Degree(fl.Field().Int()).Valid()
}
