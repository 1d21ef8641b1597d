package barber

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"agendazap/models"
	"agendazap/services/wpp"
)

const adminPanel = "💈 *Painel do Barbeiro* 💈\n" +
	"📅 agendamentos — Ver horários do dia\n" +
	"➡ proximo — Ver próximo cliente\n" +
	"✅ finalizei — Marcar atendimento concluído\n" +
	"📖 menu — Ver este menu novamente"

// ProcessAdmin handles the barber-side command surface. The dispatcher only
// routes configured admin chats here.
func (f *Flow) ProcessAdmin(ctx context.Context, chatID, text string, tenant models.Tenant, sender wpp.Sender) error {
	cmd := strings.ToLower(normalizeText(text))

	switch {
	case cmd == "menu" || cmd == "painel" || cmd == "painel barbeiro":
		return sender.SendText(ctx, chatID, adminPanel)
	case strings.HasPrefix(cmd, "agendamentos"):
		return f.adminListDay(ctx, chatID, tenant, sender)
	case strings.HasPrefix(cmd, "proximo") || strings.HasPrefix(cmd, "próximo"):
		return f.adminNextCustomer(ctx, chatID, tenant, sender)
	case strings.HasPrefix(cmd, "finalizei"):
		return f.adminFinishCurrent(ctx, chatID, tenant, sender)
	}

	return sender.SendText(ctx, chatID, "❓ *Comando não reconhecido.*\n\n📋 Digite *menu* para ver as opções disponíveis.")
}

// activeDayReservations returns today's Pending/Confirmed rows sorted by slot.
func (f *Flow) activeDayReservations(ctx context.Context, tenantID string) ([]models.Reservation, error) {
	today := f.now().Format(ledgerDateLayout)
	rows, err := f.Agenda.ListDay(ctx, tenantID, today)
	if err != nil {
		return nil, err
	}

	var active []models.Reservation
	for _, r := range rows {
		if r.Active() {
			active = append(active, r)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].TimeSlot < active[j].TimeSlot })
	return active, nil
}

func (f *Flow) adminListDay(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender) error {
	active, err := f.activeDayReservations(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if len(active) == 0 {
		return sender.SendText(ctx, chatID, "📅 *Agendamentos de hoje*\n\nNenhum agendamento para hoje.")
	}

	var lines []string
	for _, r := range active {
		lines = append(lines, fmt.Sprintf("🕒 %s — %s (%s) [%s]", r.TimeSlot, r.CustomerName, r.Service, r.Status))
	}
	return sender.SendText(ctx, chatID, "📅 *Agendamentos de hoje*\n\n"+strings.Join(lines, "\n"))
}

// nextUpcoming returns today's first active reservation at or after now.
func (f *Flow) nextUpcoming(ctx context.Context, tenantID string) (*models.Reservation, error) {
	active, err := f.activeDayReservations(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	cutoff := f.now().Format("15:04")
	for i := range active {
		if active[i].TimeSlot >= cutoff {
			return &active[i], nil
		}
	}
	return nil, nil
}

func (f *Flow) adminNextCustomer(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender) error {
	next, err := f.nextUpcoming(ctx, tenant.ID)
	if err != nil {
		return err
	}
	if next == nil {
		return sender.SendText(ctx, chatID, "➡ *Próximo cliente*\n\nNenhum cliente restante hoje.")
	}

	msg := fmt.Sprintf("➡ *Próximo cliente*\n\n👤 %s\n🕒 %s\n💈 %s", next.CustomerName, next.TimeSlot, next.Service)
	if next.Instagram != "" {
		msg += "\n📷 " + next.Instagram
	}
	return sender.SendText(ctx, chatID, msg)
}

func (f *Flow) adminFinishCurrent(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender) error {
	active, err := f.activeDayReservations(ctx, tenant.ID)
	if err != nil {
		return err
	}

	// the appointment being finished is the last one that already started
	cutoff := f.now().Format("15:04")
	var current *models.Reservation
	for i := range active {
		if active[i].TimeSlot <= cutoff {
			current = &active[i]
		}
	}
	if current == nil && len(active) > 0 {
		current = &active[0]
	}
	if current == nil {
		return sender.SendText(ctx, chatID, "✅ Nenhum atendimento em andamento para finalizar.")
	}

	return sender.SendText(ctx, chatID,
		fmt.Sprintf("✅ Atendimento de *%s* (%s) marcado como concluído. Bom trabalho!", current.CustomerName, current.TimeSlot))
}
