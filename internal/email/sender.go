// Package email sends transactional mail through a pluggable provider.
package email

import "context"

// Message is an email to deliver.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string // plain text fallback
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
