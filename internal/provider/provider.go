package provider

import "context"

// Gateway is the outbound message delivery port. Implementations submit one
// message to the external channel provider and never retry on their own;
// retry policy, if any, belongs to the caller.
type Gateway interface {
	Send(ctx context.Context, to string, body string) (*SendResult, error)
}

// SendResult stores provider acceptance metadata for audit and persistence.
type SendResult struct {
	StatusCode int
	Body       string
	MessageID  string
}
