package wpp

import "context"

// Sender is the outbound messaging capability handed to flows. Sends are
// best-effort: implementations log failures and return them, but callers are
// free to continue the conversation.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) error
}
