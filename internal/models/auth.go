package models

import "fmt"

type EmailCodeType string

const (
	EmailCodeRegister      EmailCodeType = "register"
	EmailCodeResetPassword EmailCodeType = "reset_password"
)

func ParseEmailCodeType(value string) (EmailCodeType, error) {
	switch EmailCodeType(value) {
	case "":
		return EmailCodeRegister, nil
	case EmailCodeRegister, EmailCodeResetPassword:
		return EmailCodeType(value), nil
	default:
		return "", fmt.Errorf("unknown verification code type: %s", value)
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	EmailCode            string `json:"email_code,omitempty"`
	InviteCode           string `json:"invite_code,omitempty"`
}

type SendEmailCodeRequest struct {
	Email string        `json:"email"`
	Type  EmailCodeType `json:"type"`
}

type ResetPasswordRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	EmailCode            string `json:"email_code"`
}

// AuthData is the payload returned by login and, on some backends,
// registration.
type AuthData struct {
	Token    string    `json:"token"`
	IsAdmin  any       `json:"is_admin,omitempty"`
	AuthData *UserInfo `json:"auth_data"`
}

// HasCredentials reports whether the payload is structurally usable
// to establish a session.
func (a *AuthData) HasCredentials() bool {
	return a != nil && len(a.Token) > 0 && a.AuthData != nil
}

type CheckEmailData struct {
	IsExist bool `json:"is_exist"`
}

// Result is the outcome of a session operation as reported to the caller.
type Result struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Authenticated bool   `json:"authenticated,omitempty"`
}
