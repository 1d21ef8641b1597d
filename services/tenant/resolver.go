package tenant

import (
	"errors"

	"agendazap/models"
	"agendazap/services/wpp"
)

// ErrUnresolved is returned when no resolution rule produced a tenant. The
// webhook handler rejects such requests with a 400.
var ErrUnresolved = errors.New("could not resolve tenant for message")

// Resolve determines the owning tenant for a normalized message.
// Precedence, first match wins:
//
//  1. explicit request-level override (query parameter)
//  2. header override
//  3. tenant hint embedded in the payload
//  4. bridge session mapped through config, only when unambiguous
//  5. canonical owner number matched against the bot-number index
//  6. canonical "to" number matched against the bot-number index
//  7. the only tenant, when exactly one is configured
//  8. the configured default tenant
func (r *Registry) Resolve(queryOverride, headerOverride string, msg models.NormalizedMessage) (string, error) {
	if queryOverride != "" && r.Has(queryOverride) {
		return queryOverride, nil
	}
	if headerOverride != "" && r.Has(headerOverride) {
		return headerOverride, nil
	}
	if msg.TenantHint != "" && r.Has(msg.TenantHint) {
		return msg.TenantHint, nil
	}

	if msg.SessionHint != "" {
		if candidates := r.tenantsBySession(msg.SessionHint); len(candidates) == 1 {
			return candidates[0], nil
		}
	}

	if owner := wpp.CanonicalChatID(msg.Owner); owner != "" {
		if id, ok := r.tenantByBotNumber(owner); ok {
			return id, nil
		}
	}
	if to := wpp.CanonicalChatID(msg.To); to != "" {
		if id, ok := r.tenantByBotNumber(to); ok {
			return id, nil
		}
	}

	if r.Count() == 1 {
		return r.IDs()[0], nil
	}

	if fallback := r.DefaultTenant(); fallback != "" {
		return fallback, nil
	}
	return "", ErrUnresolved
}
