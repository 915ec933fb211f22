// Package forms validates user input before it reaches the session
// manager. Each failure maps to a message key from the i18n package so the
// CLI and the local service show the same text.
package forms

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bluebird-io/portal/internal/config"
	"github.com/bluebird-io/portal/internal/i18n"
	"github.com/bluebird-io/portal/internal/models"
)

var ErrRegistrationDisabled = errors.New("registration is disabled")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError names the first problem found in a form.
type ValidationError struct {
	Key string
}

func (e *ValidationError) Error() string {
	return e.Key
}

// Message localizes a validation failure. Other errors are returned as
// their own text.
func Message(err error, translator *i18n.Translator) string {
	var validationErr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRegistrationDisabled):
		return translator.T(i18n.RegistrationDisabled)
	case errors.As(err, &validationErr):
		return translator.T(validationErr.Key)
	default:
		return err.Error()
	}
}

type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (f *LoginForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)

	return firstProblem(collect(validate.Struct(f)),
		i18n.FormIncomplete,
		i18n.EmailInvalid,
	)
}

func (f *LoginForm) Request() models.LoginRequest {
	return models.LoginRequest{
		Email:    f.Email,
		Password: f.Password,
	}
}

type RegisterForm struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	InviteCode      string `json:"invite_code"`
	AgreeToTerms    bool   `json:"agree_to_terms" validate:"eq=true"`
}

// Validate checks the form in the order the sign up page reports
// problems: missing fields, missing code, mismatch, length, terms.
func (f *RegisterForm) Validate(features config.FeaturesConfig, suffixes []string) error {
	if !features.Registration {
		return ErrRegistrationDisabled
	}

	f.Email = strings.TrimSpace(f.Email)
	f.Code = strings.TrimSpace(f.Code)
	f.InviteCode = strings.TrimSpace(f.InviteCode)

	problems := collect(validate.Struct(f))

	if features.EmailVerification && len(f.Code) == 0 {
		problems[i18n.CodeRequired] = true
	}
	if !problems[i18n.EmailInvalid] && len(f.Email) > 0 && !HasAllowedSuffix(f.Email, suffixes) {
		problems[i18n.EmailSuffixNotAllowed] = true
	}

	return firstProblem(problems,
		i18n.FormIncomplete,
		i18n.CodeRequired,
		i18n.PasswordMismatch,
		i18n.PasswordTooShort,
		i18n.TermsRequired,
		i18n.EmailInvalid,
		i18n.EmailSuffixNotAllowed,
	)
}

// Request builds the backend body. The code is only sent when email
// verification is on, the invite code only when invites are enabled and
// one was given.
func (f *RegisterForm) Request(features config.FeaturesConfig) models.RegisterRequest {
	req := models.RegisterRequest{
		Email:                f.Email,
		Password:             f.Password,
		PasswordConfirmation: f.ConfirmPassword,
	}

	if features.EmailVerification {
		req.EmailCode = f.Code
	}
	if features.InviteCode && len(f.InviteCode) > 0 {
		req.InviteCode = f.InviteCode
	}

	return req
}

type ResetForm struct {
	Email           string `json:"email" validate:"required,email"`
	Code            string `json:"code" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

func (f *ResetForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)
	f.Code = strings.TrimSpace(f.Code)

	return firstProblem(collect(validate.Struct(f)),
		i18n.FormIncomplete,
		i18n.PasswordTooShort,
		i18n.PasswordMismatch,
		i18n.EmailInvalid,
	)
}

func (f *ResetForm) Request() models.ResetPasswordRequest {
	return models.ResetPasswordRequest{
		Email:                f.Email,
		Password:             f.Password,
		PasswordConfirmation: f.ConfirmPassword,
		EmailCode:            f.Code,
	}
}

type SendCodeForm struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type"`
}

func (f *SendCodeForm) Validate() error {
	f.Email = strings.TrimSpace(f.Email)

	problems := collect(validate.Struct(f))
	if len(f.Email) == 0 {
		problems[i18n.EmailRequired] = true
	}
	if _, err := models.ParseEmailCodeType(f.Type); err != nil {
		problems[i18n.CodeTypeInvalid] = true
	}

	return firstProblem(problems,
		i18n.EmailRequired,
		i18n.EmailInvalid,
		i18n.CodeTypeInvalid,
	)
}

// CodeType assumes Validate has passed.
func (f *SendCodeForm) CodeType() models.EmailCodeType {
	codeType, _ := models.ParseEmailCodeType(f.Type)
	return codeType
}

// ComposeEmail joins a mailbox name and a domain picked from the allowed
// suffixes, the way the sign up page builds addresses.
func ComposeEmail(prefix string, suffix string) string {
	prefix = strings.TrimSpace(prefix)
	suffix = strings.TrimPrefix(strings.TrimSpace(suffix), "@")
	if len(prefix) == 0 || len(suffix) == 0 {
		return ""
	}
	return prefix + "@" + suffix
}

// HasAllowedSuffix reports whether the email's domain is one of suffixes.
// An empty list allows every domain.
func HasAllowedSuffix(email string, suffixes []string) bool {
	if len(suffixes) == 0 {
		return true
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]

	for _, suffix := range suffixes {
		if strings.EqualFold(domain, strings.TrimPrefix(suffix, "@")) {
			return true
		}
	}
	return false
}

// collect maps validator failures onto message keys.
func collect(err error) map[string]bool {
	problems := make(map[string]bool)

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return problems
	}

	for _, fieldErr := range validationErrs {
		switch fieldErr.Tag() {
		case "required":
			problems[i18n.FormIncomplete] = true
		case "email":
			problems[i18n.EmailInvalid] = true
		case "min":
			problems[i18n.PasswordTooShort] = true
		case "eqfield":
			problems[i18n.PasswordMismatch] = true
		case "eq":
			problems[i18n.TermsRequired] = true
		}
	}

	return problems
}

func firstProblem(problems map[string]bool, order ...string) error {
	for _, key := range order {
		if problems[key] {
			return &ValidationError{Key: key}
		}
	}
	return nil
}
