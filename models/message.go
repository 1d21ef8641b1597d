package models

import "strings"

// NormalizedMessage is the canonical view of a single inbound webhook message,
// regardless of which payload shape the bridge delivered it in. It is built
// fresh per webhook call and never persisted.
type NormalizedMessage struct {
	Raw         map[string]any
	Text        string
	ChatID      string
	To          string
	Owner       string
	FromMe      bool
	Timestamp   int64 // unix seconds, 0 when absent
	MessageID   string
	TenantHint  string
	SessionHint string
}

// IsGroup reports whether the message came from a group chat.
func (m NormalizedMessage) IsGroup() bool {
	return strings.Contains(m.ChatID, "@g.us")
}
