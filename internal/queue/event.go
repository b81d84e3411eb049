// Package queue defines the notification events published to the message
// broker and the producer that delivers them. Consumption and actual
// email/SMS delivery belong to a separate process and are not part of this
// service.
package queue

// Queue and message-kind names shared with the notification consumer.
const (
	NotificationsQueue = "notifications"

	KindAccountVerification = "ACCOUNT_VERIFICATION"
	KindPasswordReset       = "PASSWORD_RESET"
)

// AccountVerificationMessage is published after a successful sign-up so the
// notification side can greet/verify the new account.
type AccountVerificationMessage struct {
	Username string `json:"username"`
	Link     string `json:"link"`
}

// PasswordResetMessage is published when a password reset is initiated. Link
// carries the caller-supplied callback URL with the opaque reset token
// appended.
type PasswordResetMessage struct {
	Username string `json:"username"`
	Link     string `json:"link"`
}
