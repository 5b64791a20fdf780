package email

import (
	"fmt"
	"html"
)

// VerificationMessage builds the email that confirms a new account's address.
func VerificationMessage(to, name, verifyURL string) Message {
	return Message{
		To:      to,
		Subject: "Verify your email address",
		HTML: fmt.Sprintf(`<p>Hi %s,</p>
<p>Please confirm your email address to finish signing up:</p>
<p><a href="%s">Verify Email</a></p>
<p>This link will expire in 24 hours.</p>`, html.EscapeString(name), html.EscapeString(verifyURL)),
		Text: fmt.Sprintf(`Hi %s,

Please confirm your email address to finish signing up:

%s

This link will expire in 24 hours.
`, name, verifyURL),
	}
}

// PasswordResetMessage builds the email that carries a password reset link.
func PasswordResetMessage(to, resetURL string) Message {
	return Message{
		To:      to,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(`<p>You requested a password reset. Use the link below to set a new password:</p>
<p><a href="%s">Reset Password</a></p>
<p>This link will expire in 1 hour. If you didn't request this, you can ignore this email.</p>`, html.EscapeString(resetURL)),
		Text: fmt.Sprintf(`You requested a password reset. Use the link below to set a new password:

%s

This link will expire in 1 hour. If you didn't request this, you can ignore this email.
`, resetURL),
	}
}
