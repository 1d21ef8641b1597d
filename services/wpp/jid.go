package wpp

import "strings"

const (
	// CanonicalSuffix is the chat id form used as the primary key for
	// conversation state and bot-number indexing.
	CanonicalSuffix = "@c.us"
	// GroupSuffix marks group chats; group ids are already canonical.
	GroupSuffix = "@g.us"

	multiDeviceSuffix = "@s.whatsapp.net"
)

// CanonicalChatID normalizes WhatsApp identifiers to the @c.us form.
// A value without digits and without a recognized suffix passes through
// unchanged; rejecting it here would drop messages from bridge versions we
// have not seen yet.
func CanonicalChatID(identifier string) string {
	raw := strings.TrimSpace(identifier)
	if raw == "" {
		return ""
	}

	raw = strings.TrimPrefix(raw, "+")

	if strings.HasSuffix(raw, multiDeviceSuffix) {
		raw = strings.TrimSuffix(raw, multiDeviceSuffix) + CanonicalSuffix
	}

	if strings.HasSuffix(raw, CanonicalSuffix) || strings.HasSuffix(raw, GroupSuffix) {
		return raw
	}

	var digits strings.Builder
	for _, ch := range raw {
		if ch >= '0' && ch <= '9' {
			digits.WriteRune(ch)
		}
	}
	if digits.Len() > 0 {
		return digits.String() + CanonicalSuffix
	}

	return raw
}
