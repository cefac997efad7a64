package mark

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/matokeo/core"
)

var (
	examTypeTag  = "examtype"
	examTypeText = "invalid exam type"
)

// InitValidators registers this package's custom validators. Call once at app init.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(examTypeTag, examTypeValidation)
	core.RegisterCustomTranslation(validate, translator, examTypeTag, examTypeText)
}

// examTypeValidation checks that the provided exam type is a known ExamType.
func examTypeValidation(fl validator.FieldLevel) bool {
	return ExamType(fl.Field().String()).IsValid()
}
