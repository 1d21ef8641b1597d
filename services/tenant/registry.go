package tenant

import (
	"fmt"
	"sort"

	"agendazap/config"
	"agendazap/models"
	"agendazap/services/wpp"
)

// ErrUnknownTenant is returned when a tenant id is not configured.
var ErrUnknownTenant = fmt.Errorf("unknown tenant")

// Registry holds the static tenant configuration plus the derived lookup
// indexes and one bridge sender per tenant. Read-only after construction.
type Registry struct {
	tenants       map[string]models.Tenant
	bySession     map[string][]string // session name -> tenant ids
	byBotNumber   map[string]string   // canonical bot number -> tenant id
	admins        map[string]map[string]bool
	senders       map[string]wpp.Sender
	defaultTenant string
}

// NewRegistry indexes the loaded tenant config and builds a bridge client per
// tenant with a configured bridge URL.
func NewRegistry(tenants map[string]models.Tenant, defaultTenant string) *Registry {
	r := &Registry{
		tenants:       tenants,
		bySession:     make(map[string][]string),
		byBotNumber:   make(map[string]string),
		admins:        make(map[string]map[string]bool),
		senders:       make(map[string]wpp.Sender),
		defaultTenant: defaultTenant,
	}

	for id, t := range tenants {
		if t.BridgeURL != "" {
			apiKey := t.BridgeAPIKey
			if apiKey == "" {
				apiKey = config.AppConfig.WahaAPIKey
			}
			r.senders[id] = wpp.NewClient(t.BridgeURL, t.Session, apiKey)
		}

		r.bySession[t.Session] = append(r.bySession[t.Session], id)

		for _, number := range t.BotNumbers {
			if canonical := wpp.CanonicalChatID(number); canonical != "" {
				r.byBotNumber[canonical] = id
			}
		}

		adminSet := make(map[string]bool, len(t.Admins))
		for _, admin := range t.Admins {
			adminSet[wpp.CanonicalChatID(admin)] = true
		}
		r.admins[id] = adminSet
	}
	return r
}

// Get returns a tenant by id.
func (r *Registry) Get(id string) (models.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return models.Tenant{}, fmt.Errorf("%w: %s", ErrUnknownTenant, id)
	}
	return t, nil
}

// Has reports whether the tenant id is configured.
func (r *Registry) Has(id string) bool {
	_, ok := r.tenants[id]
	return ok
}

// Sender returns the bridge sender for a tenant, or an error when the tenant
// has no bridge configured.
func (r *Registry) Sender(id string) (wpp.Sender, error) {
	s, ok := r.senders[id]
	if !ok {
		return nil, fmt.Errorf("no messaging bridge configured for tenant %q", id)
	}
	return s, nil
}

// SetSender replaces a tenant's sender. Used by tests.
func (r *Registry) SetSender(id string, s wpp.Sender) {
	r.senders[id] = s
}

// IsAdmin reports whether a chat id is in the tenant's admin set.
func (r *Registry) IsAdmin(tenantID, chatID string) bool {
	return r.admins[tenantID][chatID]
}

// IDs lists configured tenant ids in stable order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of configured tenants.
func (r *Registry) Count() int {
	return len(r.tenants)
}

// tenantsBySession returns the tenants bound to a bridge session name.
func (r *Registry) tenantsBySession(session string) []string {
	return r.bySession[session]
}

// tenantByBotNumber resolves a canonical bot number to its owning tenant.
func (r *Registry) tenantByBotNumber(number string) (string, bool) {
	id, ok := r.byBotNumber[number]
	return id, ok
}

// DefaultTenant returns the configured fallback tenant id, or "" when the
// fallback is not itself a configured tenant.
func (r *Registry) DefaultTenant() string {
	if r.Has(r.defaultTenant) {
		return r.defaultTenant
	}
	return ""
}
