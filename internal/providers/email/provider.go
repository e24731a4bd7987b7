package email

import "context"

type Message struct {
	To      string
	Subject string
	Body    string
}

// Provider sends transactional mail. Delivery is best-effort; callers treat
// errors as log-and-continue.
type Provider interface {
	Send(ctx context.Context, msg Message) error
}
