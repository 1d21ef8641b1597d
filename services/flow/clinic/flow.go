// Package clinic is the physiotherapy-studio dialog: commercial info, lead
// capture for class scheduling, hosted payment links and an FAQ. Unlike the
// barbershop flow it holds no slot ledger; scheduling requests are captured as
// leads and confirmed by the studio team.
package clinic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"agendazap/config"
	"agendazap/models"
	"agendazap/services/wpp"
	"agendazap/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conversation stages. "menu" matches the state store's initial stage.
const (
	stageMenu         = "menu"
	stageLeadName     = "agendamento_nome"
	stageLeadSlotPref = "agendamento_preferencia"
	stageLeadNotes    = "agendamento_observacoes"
)

const defaultLinkAmount = 120.0

const defaultLinkBase = "https://pagamentos.movimenta.exemplo/checkout"

// Flow implements the clinic dialog. LeadsDir is where captured leads are
// appended, one JSON line per lead, in a per-tenant file.
type Flow struct {
	LeadsDir string

	// Clock is overridable for tests; nil means time.Now.
	Clock func() time.Time
}

func New() *Flow {
	return &Flow{LeadsDir: config.AppConfig.LeadsDir}
}

func (f *Flow) now() time.Time {
	if f.Clock != nil {
		return f.Clock()
	}
	return time.Now()
}

var menuText = "🤖 *%s*\n" +
	"Como posso te ajudar hoje?\n\n" +
	"1️⃣ Comercial – planos e diferenciais\n" +
	"2️⃣ Agendar/Remarcar uma aula\n" +
	"3️⃣ Pagamentos – link rápido\n" +
	"4️⃣ Dúvidas frequentes\n\n" +
	"Você pode digitar *menu* a qualquer momento para voltar para cá."

var commercialText = "✨ *Sobre o nosso estúdio*\n" +
	"• Aulas personalizadas com fisioterapeutas especializados em Pilates clínico.\n" +
	"• Planos individuais, duplas e trio, com avaliações periódicas incluídas.\n" +
	"• Ambiente climatizado, equipamentos modernos e vagas de estacionamento.\n\n" +
	"Posso te ajudar com uma proposta ou simulação de plano?"

var paymentText = "💳 *Pagamento online*\n" +
	"Para facilitar, usamos links de pagamento seguros.\n" +
	"Envie *quero pagar* com o valor ou pacote desejado e encaminharemos o link em instantes.\n\n" +
	"Se preferir, você pode falar direto com a recepção digitando *atendente*."

var faqText = "❓ *Dúvidas comuns*\n" +
	"• Precisamos de roupa confortável e meia antiderrapante.\n" +
	"• As aulas duram 55 minutos e podem ser individuais ou em grupos reduzidos.\n" +
	"• Trabalhamos com reembolso para vários convênios (via recibo).\n" +
	"• Há estacionamento conveniado em frente ao estúdio.\n\n" +
	"Ficou com outra dúvida? Digite e respondemos por aqui!"

var greetings = map[string]bool{
	"menu": true, "inicio": true, "início": true,
	"oi": true, "olá": true, "ola": true,
	"bom dia": true, "boa tarde": true, "boa noite": true,
}

var noNotes = map[string]bool{
	"nao": true, "não": true, "nenhuma": true, "nada": true,
}

func (f *Flow) ProcessNormal(ctx context.Context, chatID, text string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(strings.TrimSpace(text))

	switch {
	case greetings[lower]:
		state.Reset(stageMenu)
		return f.sendMenu(ctx, chatID, tenant, sender)

	case lower == "cancelar" || lower == "sair":
		state.Reset(stageMenu)
		return sender.SendText(ctx, chatID, "Tudo bem! Quando quiser retomar, é só digitar *menu*.")

	case lower == "atendente" || lower == "falar com atendente" || lower == "humano":
		return sender.SendText(ctx, chatID, "📞 Já vou acionar a recepção para continuar o atendimento com você.")

	case strings.HasPrefix(lower, "quero pagar"):
		return sender.SendText(ctx, chatID, paymentLinkMessage(text, tenant))
	}

	if strings.HasPrefix(state.Stage, "agendamento") {
		return f.continueLead(ctx, chatID, text, tenant, sender, state)
	}

	switch lower {
	case "1", "01", "comercial":
		return sender.SendText(ctx, chatID, commercialText)
	case "2", "02", "agendamento", "agendar", "remarcar", "remarcação", "confirmar":
		return f.startLead(ctx, chatID, sender, state)
	case "3", "03", "pagamento", "pagamentos", "link":
		msg := paymentText
		if tenant.PaymentInstructions != "" {
			msg += "\n\n📌 " + tenant.PaymentInstructions
		}
		return sender.SendText(ctx, chatID, msg)
	case "4", "04", "duvida", "dúvida", "duvidas", "dúvidas", "faq":
		return sender.SendText(ctx, chatID, faqText)
	}

	if state.Stage == stageMenu {
		if err := sender.SendText(ctx, chatID, "Não entendi muito bem. Use um dos números do menu ou digite *menu* para recomeçar."); err != nil {
			return err
		}
		return f.sendMenu(ctx, chatID, tenant, sender)
	}

	return sender.SendText(ctx, chatID, "Certo! Estou encaminhando para a nossa equipe finalizar esse atendimento.")
}

// ProcessAdmin keeps the admin surface minimal: the team receives lead notices
// automatically, so an inbound admin message just acknowledges that.
func (f *Flow) ProcessAdmin(ctx context.Context, chatID, _ string, _ models.Tenant, sender wpp.Sender) error {
	return sender.SendText(ctx, chatID,
		"📬 Os novos pedidos de agendamento chegam automaticamente por aqui.\n"+
			"Responda o cliente direto no chat dele para confirmar o horário.")
}

func (f *Flow) sendMenu(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender) error {
	name := tenant.Name
	if name == "" {
		name = "Estúdio Movimenta Pilates"
	}
	return sender.SendText(ctx, chatID, fmt.Sprintf(menuText, name))
}

// ==========================
// Lead capture
// ==========================

func (f *Flow) startLead(ctx context.Context, chatID string, sender wpp.Sender, state *models.ConversationState) error {
	state.Goto(stageLeadName)
	state.Context = map[string]any{}
	return sender.SendText(ctx, chatID, "Ótimo! Para reservar um horário, me conta primeiro o seu *nome completo*.")
}

func (f *Flow) continueLead(ctx context.Context, chatID, text string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	answer := strings.TrimSpace(text)

	switch state.Stage {
	case stageLeadName:
		state.Context["nome"] = answer
		state.Goto(stageLeadSlotPref)
		return sender.SendText(ctx, chatID, fmt.Sprintf(
			"Perfeito, %s! Qual dia/horário você prefere?\nEx.: terça-feira à tarde ou 12/09 às 8h.", answer))

	case stageLeadSlotPref:
		state.Context["preferencia"] = answer
		state.Goto(stageLeadNotes)
		return sender.SendText(ctx, chatID,
			"Quer deixar alguma observação (lesão, objetivo, convênio)? Se não precisar, digite *não*.")

	case stageLeadNotes:
		notes := answer
		if noNotes[strings.ToLower(notes)] {
			notes = "Sem observações adicionais."
		}
		state.Context["observacoes"] = notes
		return f.finishLead(ctx, chatID, tenant, sender, state)
	}

	state.Reset(stageMenu)
	return f.sendMenu(ctx, chatID, tenant, sender)
}

func (f *Flow) finishLead(ctx context.Context, chatID string, tenant models.Tenant, sender wpp.Sender, state *models.ConversationState) error {
	name := ctxString(state, "nome")
	pref := ctxString(state, "preferencia")
	notes := ctxString(state, "observacoes")

	if err := sender.SendText(ctx, chatID, fmt.Sprintf(
		"Obrigada! Recebemos o pedido com as informações:\n"+
			"• Nome: %s\n"+
			"• Preferência: %s\n"+
			"• Observações: %s\n\n"+
			"Nossa equipe confirma a disponibilidade e retorna por aqui em instantes.",
		name, pref, notes)); err != nil {
		return err
	}

	f.recordLead(tenant.ID, map[string]string{
		"nome":        name,
		"preferencia": pref,
		"observacoes": notes,
		"chat_id":     chatID,
	})
	f.notifyTeam(ctx, tenant, sender, fmt.Sprintf(
		"🗓️ *Novo pedido de agendamento*\n"+
			"• Nome: %s\n"+
			"• Preferência: %s\n"+
			"• Observações: %s\n"+
			"• Recebido em: %s",
		name, pref, notes, f.now().Format("02/01/2006 15:04")))

	state.Reset(stageMenu)
	return sender.SendText(ctx, chatID, "Se precisar de mais algo, é só digitar *menu* para recomeçar. 😊")
}

type leadRecord struct {
	Tenant     string            `json:"empresa"`
	CapturedAt string            `json:"capturado_em"`
	Data       map[string]string `json:"dados"`
}

// recordLead appends the lead to the tenant's JSONL file. Failures are logged
// and never interrupt the dialog.
func (f *Flow) recordLead(tenantID string, data map[string]string) {
	if f.LeadsDir == "" {
		return
	}
	if err := os.MkdirAll(f.LeadsDir, 0o755); err != nil {
		utils.GetLogger().Warn("lead capture failed",
			zap.String("tenant", tenantID), zap.Error(err))
		return
	}

	line, err := json.Marshal(leadRecord{
		Tenant:     tenantID,
		CapturedAt: f.now().UTC().Format(time.RFC3339),
		Data:       data,
	})
	if err != nil {
		utils.GetLogger().Warn("lead capture failed",
			zap.String("tenant", tenantID), zap.Error(err))
		return
	}

	path := filepath.Join(f.LeadsDir, tenantID+"_leads.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		utils.GetLogger().Warn("lead capture failed",
			zap.String("tenant", tenantID), zap.Error(err))
		return
	}
	defer file.Close()
	if _, err := file.Write(append(line, '\n')); err != nil {
		utils.GetLogger().Warn("lead capture failed",
			zap.String("tenant", tenantID), zap.Error(err))
	}
}

// notifyTeam forwards the lead summary to every configured admin chat. A
// failed delivery to one admin never blocks the others.
func (f *Flow) notifyTeam(ctx context.Context, tenant models.Tenant, sender wpp.Sender, msg string) {
	for _, admin := range tenant.Admins {
		chatID := wpp.CanonicalChatID(admin)
		if chatID == "" {
			continue
		}
		if err := sender.SendText(ctx, chatID, msg); err != nil {
			utils.GetLogger().Warn("lead notice failed",
				zap.String("tenant", tenant.ID), zap.String("admin", chatID), zap.Error(err))
		}
	}
}

// ==========================
// Payment links
// ==========================

var amountPattern = regexp.MustCompile(`\d+[.,]?\d*`)

// parseLinkAmount reads the first positive amount out of the message,
// tolerating "R$" prefixes and Brazilian separators ("1.234,56").
func parseLinkAmount(text string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(strings.ToLower(text), "r$", ""))
	for _, raw := range amountPattern.FindAllString(cleaned, -1) {
		normalized := strings.ReplaceAll(raw, ".", "")
		normalized = strings.ReplaceAll(normalized, ",", ".")
		value, err := strconv.ParseFloat(normalized, 64)
		if err != nil {
			continue
		}
		if value > 0 {
			return value
		}
	}
	return defaultLinkAmount
}

func paymentLinkMessage(text string, tenant models.Tenant) string {
	base := tenant.PaymentLinkBase
	if base == "" {
		base = defaultLinkBase
	}
	token := strings.ReplaceAll(uuid.New().String(), "-", "")[:10]
	link := fmt.Sprintf("%s?empresa=%s&token=%s&valor=%.2f", base, tenant.ID, token, parseLinkAmount(text))

	return "✅ Aqui está o seu link de pagamento seguro:\n" +
		link + "\n\n" +
		"Depois de concluir, nos avise por aqui para confirmarmos a aula!"
}

func ctxString(state *models.ConversationState, key string) string {
	if v, ok := state.Context[key].(string); ok {
		return v
	}
	return ""
}
