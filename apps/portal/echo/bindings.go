package echoportal

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"required,portalrole"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"required,portalrole"`
	}

	ResetPasswordRequest struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	SessionResponse struct {
		Status string      `json:"status"`
		Role   string      `json:"role,omitempty"`
		User   interface{} `json:"user,omitempty"`
	}

	RedirectResponse struct {
		Redirect string `json:"redirect"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	lr.Role = core.CleanString(lr.Role)
	return validate.Struct(lr)
}

func (fr *ForgotPasswordRequest) Validate(validate *validator.Validate) error {
	fr.Email = core.CleanString(fr.Email, true /* lower */)
	fr.Role = core.CleanString(fr.Role)
	return validate.Struct(fr)
}

func (rr *ResetPasswordRequest) Validate(validate *validator.Validate) error {
	rr.Token = core.CleanString(rr.Token)
	return validate.Struct(rr)
}
