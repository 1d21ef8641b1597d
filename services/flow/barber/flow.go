package barber

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"agendazap/config"
	"agendazap/models"
	"agendazap/services/agenda"
	"agendazap/services/intelligence"
	"agendazap/services/payment"
	"agendazap/services/wpp"
	"agendazap/utils"

	"go.uber.org/zap"
)

// Conversation stages. "menu" matches the state store's initial stage.
const (
	stageMenu           = "menu"
	stageSelectServices = "selecionar_servicos"
	stageAskName        = "solicitar_nome"
	stageAskInstagram   = "solicitar_insta"
	stageAskDate        = "solicitar_data"
	stageAskSlot        = "solicitar_horario"
	stageBrowseSlots    = "ver_horarios_listar"
)

const (
	ledgerDateLayout  = "2006-01-02"
	displayDateLayout = "02/01/2006"
)

// Flow is the barbershop booking dialog: menu, cart-style service selection,
// customer data capture, slot pick and PIX checkout.
type Flow struct {
	Agenda     agenda.Service
	Payments   payment.Service
	Responders map[string]*intelligence.Responder

	// Clock is overridable for tests; nil means time.Now.
	Clock func() time.Time
}

func New(ag agenda.Service, pay payment.Service) *Flow {
	return &Flow{
		Agenda:     ag,
		Payments:   pay,
		Responders: make(map[string]*intelligence.Responder),
	}
}

func (f *Flow) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}

func (f *Flow) ttl() time.Duration {
	min := config.AppConfig.ReservationTTLMin
	if min <= 0 {
		min = 20
	}
	return time.Duration(min) * time.Minute
}

// menuRouter maps menu-stage input to an action.
var menuRouter = map[string]string{
	"1": "agendar", "agendar": "agendar", "agendamento": "agendar",
	"agendar horario": "agendar", "agendar horário": "agendar",
	"2": "servicos", "servicos": "servicos", "serviços": "servicos",
	"ver servicos": "servicos", "ver serviços": "servicos",
	"3": "ver_horarios", "ver horarios": "ver_horarios", "ver horários": "ver_horarios",
	"horarios": "ver_horarios", "horários": "ver_horarios",
	"4": "atendente", "atendente": "atendente", "falar com atendente": "atendente", "humano": "atendente",
}

// textualTriggers are the non-numeric router entries that also work outside
// the menu stage, so "agendar" always starts a booking.
var textualTriggers = map[string]bool{
	"agendar": true, "agendamento": true, "agendar horario": true, "agendar horário": true,
	"servicos": true, "serviços": true, "ver servicos": true, "ver serviços": true,
	"ver horarios": true, "ver horários": true, "horarios": true, "horários": true,
	"atendente": true, "falar com atendente": true, "humano": true,
}

func (f *Flow) ProcessNormal(ctx context.Context, chatID, text string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	norm := normalizeText(text)
	lower := strings.ToLower(norm)

	if cmd := universalCommand(text); cmd != "" {
		return f.handleUniversal(ctx, cmd, chatID, tenant, sender, state)
	}

	switch lower {
	case "status", "status do pagamento", "pagamento":
		return f.handleStatus(ctx, chatID, tenant, sender, state)
	case "reenviar pix", "reenvia pix", "pix de novo", "pagar agora":
		return f.handleResendPix(ctx, chatID, tenant, sender, state)
	}

	var action string
	if state.Stage == stageMenu {
		action = menuRouter[lower]
	} else if textualTriggers[lower] {
		action = menuRouter[lower]
	}
	if action != "" {
		return f.handleMenuAction(ctx, action, chatID, tenant, sender, state)
	}

	switch state.Stage {
	case stageMenu:
		return f.handleMenuFallthrough(ctx, chatID, norm, tenant, sender)
	case stageSelectServices:
		return f.handleSelectServices(ctx, chatID, lower, sender, state)
	case stageAskName:
		return f.handleAskName(ctx, chatID, norm, sender, state)
	case stageAskInstagram:
		return f.handleAskInstagram(ctx, chatID, norm, sender, state)
	case stageAskDate:
		return f.handleAskDate(ctx, chatID, norm, tenant, sender, state)
	case stageAskSlot:
		return f.handleAskSlot(ctx, chatID, norm, tenant, sender, state)
	case stageBrowseSlots:
		return f.handleBrowseSlots(ctx, chatID, norm, lower, tenant, sender, state)
	}

	// unknown stage, start over
	state.Reset(stageMenu)
	if err := sender.SendText(ctx, chatID, box("⚠️ Não entendi", "Vamos recomeçar.")); err != nil {
		return err
	}
	return f.sendMenu(ctx, chatID, tenant, sender)
}

// ==========================
// Universal commands
// ==========================

func (f *Flow) handleUniversal(ctx context.Context, cmd, chatID string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	switch cmd {
	case "menu":
		state.Reset(stageMenu)
		return f.sendMenu(ctx, chatID, tenant, sender)
	case "voltar":
		if state.Back() {
			return sender.SendText(ctx, chatID, box("↩️ Voltar", "Voltei para a etapa anterior. Vamos continuar?"))
		}
		return sender.SendText(ctx, chatID, box("↩️ Início", "Você já está no início. Digite menu para recomeçar."))
	case "cancelar":
		state.Reset(stageMenu)
		if err := sender.SendText(ctx, chatID, box("✅ Fluxo cancelado", "Voltei ao menu principal.")); err != nil {
			return err
		}
		return f.sendMenu(ctx, chatID, tenant, sender)
	case "ajuda":
		content := "• Use menu para voltar ao início\n" +
			"• voltar para etapa anterior\n" +
			"• cancelar para encerrar\n" +
			"• atendente para falar com humano\n\n" +
			"Ex.: “agendar amanhã às 14h”"
		return sender.SendText(ctx, chatID, box("🆘 Ajuda rápida", content))
	case "atendente":
		state.Reset(stageMenu)
		if err := sender.SendText(ctx, chatID, box("👩‍💼 Atendente", "Perfeito! Vou te direcionar para um atendente agora.")); err != nil {
			return err
		}
		return f.sendMenu(ctx, chatID, tenant, sender)
	}
	return nil
}

// ==========================
// Quick payment commands
// ==========================

func (f *Flow) handleStatus(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	resID := ctxString(state, "ultimo_agendamento_id")
	if resID == "" {
		return sender.SendText(ctx, chatID, box("ℹ️ Status", "Não encontrei um pagamento pendente recente. Digite *agendar* para começar."))
	}

	r, err := f.Agenda.Get(ctx, tenant.ID, resID)
	if err != nil {
		utils.GetLogger().Warn("status lookup failed",
			zap.String("tenant", tenant.ID), zap.String("reservation", resID), zap.Error(err))
		return sender.SendText(ctx, chatID, box("ℹ️ Status", fmt.Sprintf("Agendamento %s\nStatus: _indisponível agora_.", resID)))
	}
	return sender.SendText(ctx, chatID, box("ℹ️ Status do pagamento", fmt.Sprintf("Agendamento %s\nStatus: *%s*", resID, r.Status)))
}

func (f *Flow) handleResendPix(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	resID := ctxString(state, "ultimo_agendamento_id")
	last, hasPayload := state.Context["ultimo_pix"].(pixContext)
	if resID == "" || !hasPayload {
		return sender.SendText(ctx, chatID, box("ℹ️ PIX", "Não encontrei um pagamento pendente recente. Digite *agendar* para começar."))
	}

	ok, err := f.Agenda.ReservationMatches(ctx, tenant.ID, resID, last.Date, last.Slot, chatID)
	if err != nil {
		return err
	}
	if !ok {
		return sender.SendText(ctx, chatID, box("⏰ Reserva expirada", "Esse horário não está mais disponível. Digite *agendar* para refazer."))
	}

	items, total, err := f.Agenda.Snapshot(ctx, tenant.ID, resID)
	if err != nil || len(items) == 0 {
		return sender.SendText(ctx, chatID, box("⚠️ PIX", "Não consegui gerar agora. Talvez a reserva tenha expirado. Digite *agendar* para refazer."))
	}

	charge, err := f.Payments.CreatePixCharge(ctx, tenant, payment.CreateChargeInput{
		Reference: models.ChargeReference{
			Tenant:        tenant.ID,
			ReservationID: resID,
			ChatID:        chatID,
			Name:          last.Name,
			Instagram:     last.Instagram,
			Date:          last.Date,
			TimeSlot:      last.Slot,
			Service:       itemTitles(items),
			Total:         total,
			LineItems:     items,
		},
	})
	if err != nil {
		utils.GetLogger().Warn("pix resend failed",
			zap.String("tenant", tenant.ID), zap.String("reservation", resID), zap.Error(err))
		return sender.SendText(ctx, chatID, box("⚠️ PIX", "Não consegui gerar agora. Talvez a reserva tenha expirado. Digite *agendar* para refazer."))
	}

	ticket := charge.TicketURL
	if ticket == "" {
		ticket = "— indisponível —"
	}
	if err := sender.SendText(ctx, chatID, box("💳 Novo PIX", "Enviei um novo PIX (validade ~20 min).\n\n🌐 QR em página web:\n"+ticket)); err != nil {
		return err
	}
	return f.sendCopyPasteCode(ctx, chatID, sender, charge.QRCode)
}

// ==========================
// Menu
// ==========================

func (f *Flow) sendMenu(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender) error {
	title := "💈 " + tenant.Name
	if tenant.Name == "" {
		title = "💈 Barbearia"
	}
	content := chip("1", "Agendar horário") + "\n" +
		chip("2", "Ver serviços") + "\n" +
		chip("3", "Ver horários disponíveis") + "\n" +
		chip("4", "Falar com atendente")
	return sender.SendText(ctx, chatID, box(title, content)+"\n\n"+footerCommands())
}

func (f *Flow) handleMenuAction(ctx context.Context, action, chatID string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	switch action {
	case "agendar":
		state.Push(stageSelectServices)
		state.Context["servicos"] = []string{}
		msg := box("✍ Selecione os serviços", catalogText()) + "\n\n" +
			"ℹ️ Dica:\n   envie números (ex.: 1,3) ou nomes (ex.: corte social, barba)."
		return sender.SendText(ctx, chatID, msg)

	case "servicos":
		state.Goto(stageMenu)
		msg := box("📋 Serviços disponíveis", catalogText()) + "\n\n" +
			"Para agendar, escolha 1 no menu ou digite Agendar."
		return sender.SendText(ctx, chatID, msg)

	case "ver_horarios":
		today := f.now()
		state.Context["consulta_data"] = today.Format(ledgerDateLayout)
		state.Goto(stageBrowseSlots)
		return f.sendAvailability(ctx, chatID, tenant, sender, today, true)

	case "atendente":
		if err := sender.SendText(ctx, chatID, box("👨‍💼 Atendente", "Certo! Um atendente vai te chamar em instantes.")); err != nil {
			return err
		}
		state.Goto(stageMenu)
		return f.sendMenu(ctx, chatID, tenant, sender)
	}
	return nil
}

// handleMenuFallthrough deals with menu-stage input the router did not
// recognize. Question-looking messages go to the tenant's FAQ responder when
// one is configured; everything else re-renders the menu.
func (f *Flow) handleMenuFallthrough(ctx context.Context, chatID, norm string, tenant models.Tenant, sender wpp.Sender) error {
	if responder := f.Responders[tenant.ID]; responder != nil && looksLikeQuestion(norm) {
		answer, err := responder.Answer(ctx, norm)
		if err == nil {
			return sender.SendText(ctx, chatID, answer+"\n\n"+footerCommands())
		}
		utils.GetLogger().Warn("faq responder failed",
			zap.String("tenant", tenant.ID), zap.Error(err))
	}
	return f.sendMenu(ctx, chatID, tenant, sender)
}

func looksLikeQuestion(text string) bool {
	return strings.Contains(text, "?") || len(strings.Fields(text)) >= 3
}

// ==========================
// Service selection
// ==========================

func (f *Flow) handleSelectServices(ctx context.Context, chatID, lower string, sender wpp.Sender, state *models.ConversationState) error {
	cart := ctxStrings(state, "servicos")

	switch lower {
	case "pronto", "finalizar", "ok":
		if len(cart) == 0 {
			return sender.SendText(ctx, chatID, box("⚠️ Atenção", "Você ainda não selecionou nenhum serviço. Escolha ao menos 1."))
		}
		state.Goto(stageAskName)
		msg := box("🗂 Serviços selecionados", renderCart(cart, "     ")) + "\n\n" +
			"🧑 Por favor, digite seu nome completo.\n(ou digite: pular)"
		return sender.SendText(ctx, chatID, msg)

	case "limpar":
		state.Context["servicos"] = []string{}
		msg := box("🧹 Seleção limpa!", catalogText()) + "\n\n" +
			"Adicione serviços (ex.: 1,3) e digite pronto quando terminar."
		return sender.SendText(ctx, chatID, msg)
	}

	if target, ok := strings.CutPrefix(lower, "remover "); ok {
		target = strings.TrimSpace(target)
		ids := parseServiceTokens(target)
		if len(ids) == 0 {
			if code, found := findServiceByFragment(target); found {
				ids = []string{code}
			}
		}
		if len(ids) == 0 {
			return sender.SendText(ctx, chatID, box("⚠️ Não encontrado", "Não encontrei esse serviço para remover. Tente remover 2 ou remover barba."))
		}
		cart = removeCodes(cart, ids)
		state.Context["servicos"] = cart
		msg := box("🗑 Removido", "🗂 Agora:\n"+renderCart(cart, "     ")) + "\n\n" + footerCartTips()
		return sender.SendText(ctx, chatID, msg)
	}

	ids := parseServiceTokens(lower)
	if len(ids) == 0 {
		return sender.SendText(ctx, chatID, box("⚠️ Não entendi",
			"Envie números (ex.: 1,3) ou nomes (ex.: corte social, barba).\nDica: pronto para finalizar."))
	}
	for _, id := range ids {
		if !containsCode(cart, id) {
			cart = append(cart, id)
		}
	}
	state.Context["servicos"] = cart
	msg := box("✅ Adicionado!", "🗂 Seleção:\n"+renderCart(cart, "     ")) + "\n\n" + footerCartTips()
	return sender.SendText(ctx, chatID, msg)
}

// ==========================
// Name / Instagram
// ==========================

var nameRe = regexp.MustCompile(`^[A-Za-zÀ-ÿ'´` + "`" + `^~\- ]{2,}$`)

// lowercase name particles kept uncapitalized, except when leading
var nameParticles = map[string]bool{
	"de": true, "da": true, "do": true, "dos": true, "das": true,
	"e": true, "di": true, "du": true,
}

func formatCustomerName(raw string) string {
	parts := strings.Fields(strings.ToLower(raw))
	for i, p := range parts {
		if i != 0 && nameParticles[p] {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func (f *Flow) handleAskName(ctx context.Context, chatID, norm string, sender wpp.Sender, state *models.ConversationState) error {
	lower := strings.ToLower(norm)
	if lower == "pular" || lower == "skip" {
		state.Context["nome_cliente"] = "Cliente"
	} else {
		if !nameRe.MatchString(norm) {
			return sender.SendText(ctx, chatID, box("❌ Nome inválido",
				"Envie seu nome completo (somente letras). Ex.: João da Silva\n(ou digite: pular)"))
		}
		state.Context["nome_cliente"] = formatCustomerName(norm)
	}

	state.Goto(stageAskInstagram)
	return sender.SendText(ctx, chatID, box("📷 Quer aparecer com @ na vitrine?",
		"Envie seu @ do Instagram (ex.: @seuuser)\nOu digite: pular"))
}

var instagramRe = regexp.MustCompile(`^@?[A-Za-z0-9._]{1,30}$`)

func (f *Flow) handleAskInstagram(ctx context.Context, chatID, norm string, sender wpp.Sender, state *models.ConversationState) error {
	handle := strings.TrimSpace(norm)
	lower := strings.ToLower(handle)

	insta := ""
	if lower != "pular" && lower != "skip" && lower != "" {
		if !instagramRe.MatchString(handle) {
			return sender.SendText(ctx, chatID, box("❌ @ inválido",
				"Envie no formato @usuario (letras, números, ponto e sublinhado).\nOu digite: pular"))
		}
		insta = lower
		if !strings.HasPrefix(insta, "@") {
			insta = "@" + insta
		}
	}
	state.Context["insta"] = insta

	state.Goto(stageAskDate)
	return sender.SendText(ctx, chatID, box("📅 Informe a data", "Digite no formato DD/MM (ex.: 12/06)."))
}

// ==========================
// Date / slot
// ==========================

var dayMonthRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})$`)

// parseDayMonth accepts DD/MM, assuming the current year and rolling to next
// year when the date already passed.
func (f *Flow) parseDayMonth(text string) (time.Time, bool) {
	m := dayMonthRe.FindStringSubmatch(strings.ReplaceAll(text, " ", ""))
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])

	now := f.now()
	dt := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if dt.Month() != time.Month(month) || dt.Day() != day {
		return time.Time{}, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if dt.Before(today) {
		dt = time.Date(now.Year()+1, time.Month(month), day, 0, 0, 0, 0, now.Location())
		if dt.Month() != time.Month(month) || dt.Day() != day {
			return time.Time{}, false
		}
	}
	return dt, true
}

// availabilityLines renders the numbered slot list with free/taken markers.
func (f *Flow) availabilityLines(ctx context.Context, tenantID string, date time.Time, showNames bool) (string, error) {
	rows, err := f.Agenda.ListDay(ctx, tenantID, date.Format(ledgerDateLayout))
	if err != nil {
		return "", err
	}

	occupied := make(map[string]string)
	for _, r := range rows {
		if r.Active() {
			if _, ok := occupied[r.TimeSlot]; !ok {
				occupied[r.TimeSlot] = r.CustomerName
			}
		}
	}

	var lines []string
	for i, slot := range agenda.TimeBlocks {
		label := "✅ Livre"
		if name, taken := occupied[slot]; taken {
			label = "❌ Ocupado"
			if showNames && name != "" {
				label += " — " + name
			}
		}
		lines = append(lines, fmt.Sprintf("%d - %s - %s", i+1, slot, label))
	}
	return strings.Join(lines, "\n"), nil
}

func (f *Flow) sendAvailability(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender, date time.Time, fromMenu bool) error {
	lines, err := f.availabilityLines(ctx, tenant.ID, date, true)
	if err != nil {
		return err
	}

	title := "📅 Consulta — " + date.Format(displayDateLayout)
	content := "⏰ Disponíveis:\n" + lines + "\n\n" +
		"Para *agendar*, digite: agendar\n" +
		"Para consultar outra *data*, envie: DD/MM (ex.: 15/08)"
	return sender.SendText(ctx, chatID, box(title, content))
}

func (f *Flow) handleAskDate(ctx context.Context, chatID, norm string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	dt, ok := f.parseDayMonth(norm)
	if !ok {
		return sender.SendText(ctx, chatID, box("❌ Data inválida", "Use DD/MM (ex.: 12/06)."))
	}

	state.Context["data"] = dt.Format(ledgerDateLayout)
	lines, err := f.availabilityLines(ctx, tenant.ID, dt, true)
	if err != nil {
		return err
	}

	state.Goto(stageAskSlot)
	title := "⏰ Horários disponíveis — " + dt.Format(displayDateLayout)
	return sender.SendText(ctx, chatID, box(title, lines+"\n\n👉 Digite o número do horário desejado."))
}

func (f *Flow) handleAskSlot(ctx context.Context, chatID, norm string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	index, err := strconv.Atoi(norm)
	if err != nil {
		return sender.SendText(ctx, chatID, box("❌ Entrada inválida", "Digite o número do horário da lista."))
	}
	if index < 1 || index > len(agenda.TimeBlocks) {
		return sender.SendText(ctx, chatID, box("❌ Número inválido", "Digite um dos números exibidos."))
	}
	slot := agenda.TimeBlocks[index-1]

	dateStr := ctxString(state, "data")
	if dateStr == "" {
		state.Reset(stageMenu)
		if err := sender.SendText(ctx, chatID, box("⚠️ Ops", "Perdi o contexto da data. Vamos recomeçar pelo menu.")); err != nil {
			return err
		}
		return f.sendMenu(ctx, chatID, tenant, sender)
	}
	date, err := time.ParseInLocation(ledgerDateLayout, dateStr, f.now().Location())
	if err != nil {
		state.Reset(stageMenu)
		return f.sendMenu(ctx, chatID, tenant, sender)
	}

	cart := ctxStrings(state, "servicos")
	items := lineItemsFor(cart)
	if len(items) == 0 {
		return sender.SendText(ctx, chatID, box("⚠️ Catálogo", "Não encontrei preços para os serviços selecionados. Tente novamente."))
	}

	name := ctxString(state, "nome_cliente")
	if name == "" {
		name = "Cliente"
	}
	insta := ctxString(state, "insta")

	reservation, err := f.Agenda.Reserve(ctx, tenant.ID, agenda.ReserveRequest{
		ChatID:       chatID,
		CustomerName: name,
		Instagram:    insta,
		Date:         dateStr,
		TimeSlot:     slot,
		LineItems:    items,
		TTL:          f.ttl(),
	})
	if errors.Is(err, agenda.ErrSlotUnavailable) {
		lines, lerr := f.availabilityLines(ctx, tenant.ID, date, true)
		if lerr != nil {
			return lerr
		}
		content := fmt.Sprintf("O horário %s acabou de ser ocupado.\n\n⏰ Ainda disponíveis:\n%s\n\nEscolha outro número.", slot, lines)
		return sender.SendText(ctx, chatID, box("❌ Horário indisponível", content))
	}
	if err != nil {
		return err
	}

	state.Context["ultimo_agendamento_id"] = reservation.ID
	state.Context["ultimo_pix"] = pixContext{Name: name, Instagram: insta, Date: dateStr, Slot: slot}

	if err := f.sendPixCheckout(ctx, chatID, tenant, sender, reservation, date, slot); err != nil {
		return err
	}

	// back to the top; quick commands keep working through the saved context
	id := reservation.ID
	last := state.Context["ultimo_pix"]
	state.Reset(stageMenu)
	state.Context["ultimo_agendamento_id"] = id
	state.Context["ultimo_pix"] = last
	return nil
}

// pixContext is the snapshot kept for "reenviar pix".
type pixContext struct {
	Name      string
	Instagram string
	Date      string // YYYY-MM-DD
	Slot      string
}

func (f *Flow) sendPixCheckout(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender, r *models.Reservation, date time.Time, slot string) error {
	charge, err := f.Payments.CreatePixCharge(ctx, tenant, payment.CreateChargeInput{
		Reference: models.ChargeReference{
			Tenant:        tenant.ID,
			ReservationID: r.ID,
			ChatID:        chatID,
			Name:          r.CustomerName,
			Instagram:     r.Instagram,
			Date:          r.Date,
			TimeSlot:      slot,
			Service:       r.Service,
			Total:         r.Total,
			LineItems:     r.LineItems,
		},
	})
	if err != nil {
		utils.GetLogger().Warn("pix charge failed",
			zap.String("tenant", tenant.ID), zap.String("reservation", r.ID), zap.Error(err))
		return sender.SendText(ctx, chatID, box("⚠️ Erro", "Não consegui gerar o PIX agora. Tente novamente."))
	}

	var itemLines []string
	for _, it := range r.LineItems {
		itemLines = append(itemLines, fmt.Sprintf("- %s: %s", it.Title, utils.FormatBRL(utils.RoundMoney(it.UnitPrice))))
	}
	ticket := charge.TicketURL
	if ticket == "" {
		ticket = "— indisponível —"
	}

	content := fmt.Sprintf(
		"👤 Cliente: %s\n"+
			"💈 Serviço(s): %s\n"+
			"📅 Data: %s\n"+
			"🕒 Horário: %s\n\n"+
			"🧾 Itens:\n%s\n"+
			"Total: %s\n\n"+
			"🌐 Prefere escanear o QR?\n%s\n\n"+
			"Assim que o banco confirmar, eu te aviso aqui 👍\n"+
			"_(validade ~20 minutos)_",
		r.CustomerName, r.Service, date.Format(displayDateLayout), slot,
		strings.Join(itemLines, "\n"), utils.FormatBRL(r.Total), ticket)

	if err := sender.SendText(ctx, chatID, box("💳 PIX para confirmar", content)); err != nil {
		return err
	}
	return f.sendCopyPasteCode(ctx, chatID, sender, charge.QRCode)
}

// sendCopyPasteCode sends the PIX code isolated in its own message so the
// customer can long-press and copy it.
func (f *Flow) sendCopyPasteCode(ctx context.Context, chatID string, sender wpp.Sender, code string) error {
	if code == "" {
		return nil
	}
	if err := sender.SendText(ctx, chatID, "🔹 *PIX Copia e Cola* (copie a mensagem abaixo):"); err != nil {
		return err
	}
	return sender.SendText(ctx, chatID, code)
}

// ==========================
// Availability browsing
// ==========================

func (f *Flow) handleBrowseSlots(ctx context.Context, chatID, norm, lower string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	if dt, ok := f.parseDayMonth(norm); ok {
		state.Context["consulta_data"] = dt.Format(ledgerDateLayout)
		return f.sendAvailability(ctx, chatID, tenant, sender, dt, false)
	}

	if lower == "agendar" || lower == "quero agendar" || lower == "fazer agendamento" {
		state.Push(stageSelectServices)
		state.Context["servicos"] = []string{}
		msg := box("✍ Selecione os serviços", catalogText()) + "\n\n" +
			"ℹ️ Dica:\n   envie números (ex.: 1,3) ou nomes (ex.: corte social, barba)."
		return sender.SendText(ctx, chatID, msg)
	}

	return sender.SendText(ctx, chatID, box("ℹ️ Dica",
		"Para agendar, digite agendar.\nVocê também pode enviar outra data (DD/MM), voltar ou menu."))
}

// ==========================
// Context helpers
// ==========================

func ctxString(state *models.ConversationState, key string) string {
	s, _ := state.Context[key].(string)
	return s
}

func ctxStrings(state *models.ConversationState, key string) []string {
	s, _ := state.Context[key].([]string)
	return s
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func removeCodes(codes, toRemove []string) []string {
	drop := make(map[string]bool, len(toRemove))
	for _, c := range toRemove {
		drop[c] = true
	}
	var out []string
	for _, c := range codes {
		if !drop[c] {
			out = append(out, c)
		}
	}
	return out
}

func itemTitles(items []models.LineItem) string {
	var titles []string
	for _, it := range items {
		if t := strings.TrimSpace(it.Title); t != "" {
			titles = append(titles, t)
		}
	}
	if len(titles) == 0 {
		return "Serviço"
	}
	return strings.Join(titles, ", ")
}
