package flow

import (
	"context"

	"agendazap/models"
	"agendazap/services/wpp"
)

// Handler is one tenant-facing conversation flow. Implementations own the full
// dialog for a tenant: menu routing, data capture stages, quick commands and
// the admin command surface.
type Handler interface {
	// ProcessNormal handles one customer message. The caller holds the
	// per-chat lock for the duration of the call, so the handler may mutate
	// state freely.
	ProcessNormal(ctx context.Context, chatID, text string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error

	// ProcessAdmin handles one message from a configured admin chat.
	ProcessAdmin(ctx context.Context, chatID, text string, tenant models.Tenant, sender wpp.Sender) error
}
