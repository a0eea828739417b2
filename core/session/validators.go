package session

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

var (
	// custom validation tags & texts
	portalRoleTag  = "portalrole"
	portalRoleText = "invalid portal role"
)

// InitValidators registers session-specific validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(portalRoleTag, portalRoleValidation)
	core.RegisterCustomTranslation(validate, translator, portalRoleTag, portalRoleText)
}

// portalRoleValidation checks that the provided role maps to a known portal.
func portalRoleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}
