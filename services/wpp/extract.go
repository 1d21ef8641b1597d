package wpp

import (
	"fmt"
	"strconv"
	"strings"

	"agendazap/models"
)

// Bridge payloads vary wildly across provider versions. Normalize tries an
// ordered list of extraction strategies over the generic JSON tree and returns
// the canonical message record. Missing nodes yield empty fields, never
// errors; an all-empty result is the "no message content" sentinel the
// webhook handler ignores.
//
// Supported shapes include:
//
//	{ "event":"message", "data": {...} }
//	{ "event":"message", "payload": {...} }
//	{ "data": {"messages": [ {...} ]} }
//	{ "messages": [ {...} ] }
//	flat { "from","chatId","body","text","timestamp","id", ... }
//	messages.upsert with a nested "message" node and "key.remoteJid"
func Normalize(payload map[string]any) models.NormalizedMessage {
	data := dataNode(payload)
	msg := messageNode(payload, data)

	out := models.NormalizedMessage{Raw: payload}

	out.Text = strings.TrimSpace(scalarString(firstValue(msg, "body", "text")))
	chatID := firstString(msg, "from", "chatId", "chat_id", "sender")
	to := firstString(msg, "to")
	fromMe, fromMeSet := boolValue(msg, "fromMe")
	if !fromMeSet {
		fromMe, _ = boolValue(data, "fromMe")
	}

	// Recent bridge events use the messages.upsert structure with a nested
	// "message" node and routing info under "key".
	if inner, ok := asMap(msg["message"]); ok {
		if out.Text == "" {
			out.Text = nestedText(inner)
		}
		if key, ok := asMap(msg["key"]); ok {
			if chatID == "" {
				chatID = firstString(key, "remoteJid")
			}
			if chatID == "" {
				chatID = firstString(msg, "chatId", "chat_id")
			}
			if to == "" {
				to = firstString(key, "participant", "from")
			}
			if _, set := msg["fromMe"]; !set {
				fromMe, _ = boolValue(key, "fromMe")
			}
		}
	}
	if chatID == "" {
		if key, ok := asMap(msg["key"]); ok {
			chatID = firstString(key, "remoteJid")
		}
	}

	out.ChatID = CanonicalChatID(chatID)
	out.To = strings.TrimSpace(to)
	out.FromMe = fromMe
	out.Timestamp = extractTimestamp(msg, data)
	out.MessageID = extractMessageID(msg, data)
	out.TenantHint = firstString(payload, "empresa")
	if out.TenantHint == "" {
		out.TenantHint = firstString(data, "empresa")
	}
	out.SessionHint = extractSession(payload, data)
	out.Owner = extractOwner(msg, data, fromMe)
	return out
}

// dataNode picks the message-bearing envelope: data, payload, or the root.
// A non-empty list envelope collapses to its first element.
func dataNode(payload map[string]any) map[string]any {
	for _, key := range []string{"data", "payload"} {
		switch v := payload[key].(type) {
		case map[string]any:
			return v
		case []any:
			if len(v) > 0 {
				if m, ok := asMap(v[0]); ok {
					return m
				}
			}
		}
	}
	return payload
}

// messageNodeKeys marks an envelope that is itself a flat message object.
var messageNodeKeys = []string{
	"body", "text", "from", "chatId", "sender", "to",
	"fromMe", "timestamp", "t", "id", "messages", "message",
}

// messageNode locates the actual message object, first match wins:
// flat envelope, envelope "messages" list, root "messages" list.
func messageNode(payload, data map[string]any) map[string]any {
	var msg map[string]any

	for _, k := range messageNodeKeys {
		if _, ok := data[k]; ok {
			msg = data
			break
		}
	}

	if list, ok := asList(data["messages"]); ok && len(list) > 0 {
		if m, ok := asMap(list[0]); ok {
			msg = m
		}
	}

	if msg == nil {
		if list, ok := asList(payload["messages"]); ok && len(list) > 0 {
			if m, ok := asMap(list[0]); ok {
				msg = m
			}
		}
	}

	if msg == nil {
		return map[string]any{}
	}
	return msg
}

// nestedText digs message text out of the multi-device node variants, in
// precedence order.
func nestedText(inner map[string]any) string {
	candidates := []func() string{
		func() string { return firstString(inner, "conversation") },
		func() string { return nestedString(inner, "extendedTextMessage", "text") },
		func() string {
			return nestedString(inner, "ephemeralMessage", "message", "extendedTextMessage", "text")
		},
		func() string { return nestedString(inner, "buttonsResponseMessage", "selectedDisplayText") },
	}
	for _, get := range candidates {
		if text := strings.TrimSpace(get()); text != "" {
			return text
		}
	}
	return ""
}

// extractTimestamp reads the message timestamp from the usual key spellings
// and normalizes millisecond epochs to seconds.
func extractTimestamp(msg, data map[string]any) int64 {
	raw := firstValue(msg, "timestamp", "t", "messageTimestamp")
	if raw == nil {
		raw = firstValue(data, "timestamp", "t")
	}
	ts, ok := toInt64(raw)
	if !ok {
		return 0
	}
	if ts > 1_000_000_000_000 { // millisecond epoch
		ts /= 1000
	}
	return ts
}

// extractMessageID handles both string ids and {_serialized, id} objects.
func extractMessageID(msg, data map[string]any) string {
	raw := msg["id"]
	if raw == nil {
		raw = data["id"]
	}
	switch v := raw.(type) {
	case string:
		return v
	case map[string]any:
		return firstString(v, "_serialized", "id")
	}
	return ""
}

// extractSession reads the bridge session hint; some providers send it as an
// object with its own name/id variants.
func extractSession(payload, data map[string]any) string {
	keys := []string{"session", "sessionId", "session_id", "instanceId", "instance_id"}
	var raw any
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			raw = v
			break
		}
		if v, ok := data[k]; ok && v != nil {
			raw = v
			break
		}
	}
	switch v := raw.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		return firstString(v, "name", "id", "session", "sessionId")
	}
	return scalarString(raw)
}

// extractOwner determines the bot's own number for this conversation:
// an explicit owner object wins, otherwise "from" when the bot sent the
// message and "to" when it received it.
func extractOwner(msg, data map[string]any, fromMe bool) string {
	ownerNode, ok := asMap(data["owner"])
	if !ok {
		ownerNode, _ = asMap(msg["owner"])
	}
	owner := ""
	if ownerNode != nil {
		owner = firstString(ownerNode, "id", "wid", "number")
	}
	if owner == "" {
		if fromMe {
			owner = firstString(msg, "from")
		} else {
			owner = firstString(msg, "to")
		}
	}
	return CanonicalChatID(owner)
}

// --- generic tree helpers ---

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func firstValue(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			if s, isStr := v.(string); isStr && s == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	return strings.TrimSpace(scalarString(firstValue(m, keys...)))
}

func nestedString(m map[string]any, path ...string) string {
	cur := m
	for i, k := range path {
		if i == len(path)-1 {
			return firstString(cur, k)
		}
		next, ok := asMap(cur[k])
		if !ok {
			return ""
		}
		cur = next
	}
	return ""
}

// scalarString renders scalar values the permissive way: numbers and bools
// become their text form, everything structural becomes empty.
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool, int, int64:
		return fmt.Sprint(s)
	}
	return ""
}

func boolValue(m map[string]any, key string) (value, present bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		return b == "true" || b == "1", true
	case float64:
		return b != 0, true
	}
	return false, true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	}
	return 0, false
}
