package request

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/passify/backend/core"
)

var (
	kindTag  = "requestkind"
	kindText = "must be a valid request type"

	dispoStatusTag  = "dispostatus"
	dispoStatusText = "must be either approved or rejected"
)

// InitValidators registers request-specific validations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(kindTag, kindValidation)
	core.RegisterCustomTranslation(validate, translator, kindTag, kindText)

	_ = validate.RegisterValidation(dispoStatusTag, dispoStatusValidation)
	core.RegisterCustomTranslation(validate, translator, dispoStatusTag, dispoStatusText)
}

func kindValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, kind := range AllKinds {
		if val == kind {
			return true
		}
	}
	return false
}

func dispoStatusValidation(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	for _, status := range DispositionStatuses {
		if val == status {
			return true
		}
	}
	return false
}
