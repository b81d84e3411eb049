package service

import "net/http"

// ErrorKind tags the closed set of domain failures.
type ErrorKind string

const (
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindUserAlreadyExists  ErrorKind = "user_already_exists"
	KindInvalidAuthToken   ErrorKind = "invalid_auth_token"
	KindCaptchaFailed      ErrorKind = "captcha_challenge_failed"
)

// DomainError is the only error type that crosses the service boundary with
// a user-facing meaning. It carries a status hint and a safe message; the
// handler layer maps it to HTTP in one place and never inspects it deeper.
// Anything else escaping the service is treated as an internal failure.
type DomainError struct {
	Kind    ErrorKind
	Status  int
	Message string
}

func (e *DomainError) Error() string { return e.Message }

// The four domain failures. Every refresh/authorization failure collapses to
// ErrInvalidAuthToken so a rejection does not reveal which check tripped.
var (
	ErrInvalidCredentials = &DomainError{
		Kind: KindInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"}
	ErrUserAlreadyExists = &DomainError{
		Kind: KindUserAlreadyExists, Status: http.StatusConflict, Message: "user already exists"}
	ErrInvalidAuthToken = &DomainError{
		Kind: KindInvalidAuthToken, Status: http.StatusUnauthorized, Message: "invalid authentication token"}
	ErrCaptchaChallengeFailed = &DomainError{
		Kind: KindCaptchaFailed, Status: http.StatusForbidden, Message: "captcha challenge failed"}
)
