package flow

import (
	"context"
	"fmt"

	"agendazap/models"
	"agendazap/services/tenant"
	"agendazap/utils"

	"go.uber.org/zap"
)

// ErrUnknownFlow means a tenant's configured flow name has no registered
// handler. This is a configuration error, not a user error.
var ErrUnknownFlow = fmt.Errorf("no flow registered under configured name")

// Dispatcher routes a normalized, tenant-resolved message into the right flow
// handler, serialized per chat through the state store.
type Dispatcher struct {
	registry *tenant.Registry
	flows    map[string]Handler
	states   *Store
}

// NewDispatcher builds a dispatcher over a static flow table. The table maps
// the tenant config's flow name to its handler.
func NewDispatcher(registry *tenant.Registry, flows map[string]Handler) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		flows:    flows,
		states:   NewStore(),
	}
}

// States exposes the conversation store. Used by tests.
func (d *Dispatcher) States() *Store {
	return d.states
}

// Dispatch runs one message through the tenant's flow. Admin chats get the
// admin surface; everyone else gets the customer dialog under the per-chat
// lock. Panics inside a flow are recovered so one bad dialog turn cannot take
// the webhook worker down.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID string, msg models.NormalizedMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			utils.GetLogger().Error("flow panic recovered",
				zap.String("tenant", tenantID),
				zap.String("chat", msg.ChatID),
				zap.Any("panic", rec))
			err = fmt.Errorf("flow panic: %v", rec)
		}
	}()

	t, err := d.registry.Get(tenantID)
	if err != nil {
		return err
	}

	handler, ok := d.flows[t.Flow]
	if !ok {
		return fmt.Errorf("%w: tenant %q flow %q", ErrUnknownFlow, tenantID, t.Flow)
	}

	sender, err := d.registry.Sender(tenantID)
	if err != nil {
		return err
	}

	if d.registry.IsAdmin(tenantID, msg.ChatID) {
		return handler.ProcessAdmin(ctx, msg.ChatID, msg.Text, t, sender)
	}

	state, unlock := d.states.Acquire(tenantID, msg.ChatID)
	defer unlock()
	return handler.ProcessNormal(ctx, msg.ChatID, msg.Text, t, sender, state)
}
