package barber

import (
	"context"
	"strings"
	"testing"
	"time"

	reservationRepo "agendazap/database/repository/reservation"
	"agendazap/models"
	"agendazap/services/agenda"
	"agendazap/services/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	messages []string
}

func (s *fakeSender) SendText(_ context.Context, _ string, text string) error {
	s.messages = append(s.messages, text)
	return nil
}

func (s *fakeSender) last() string {
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1]
}

func (s *fakeSender) all() string { return strings.Join(s.messages, "\n---\n") }

type fakePayments struct {
	calls   int
	lastRef models.ChargeReference
	err     error
}

func (p *fakePayments) CreatePixCharge(_ context.Context, _ models.Tenant, in payment.CreateChargeInput) (*models.PixCharge, error) {
	p.calls++
	p.lastRef = in.Reference
	if p.err != nil {
		return nil, p.err
	}
	return &models.PixCharge{
		ID:        "pay-1",
		Status:    "pending",
		QRCode:    "PIXCODE123",
		TicketURL: "https://mp.test/ticket",
		Total:     in.Reference.Total,
	}, nil
}

func (p *fakePayments) GetCharge(_ context.Context, _ models.Tenant, _ string) (*models.PixCharge, error) {
	return nil, payment.ErrChargeFailed
}

type flowFixture struct {
	flow     *Flow
	agenda   *agenda.DefaultAgendaService
	payments *fakePayments
	sender   *fakeSender
	tenant   models.Tenant
	state    *models.ConversationState
	now      time.Time
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.Local)

	svc := agenda.NewDefaultAgendaService(reservationRepo.NewMemoryReservationRepo())
	svc.Clock = func() time.Time { return now }

	payments := &fakePayments{}
	f := New(svc, payments)
	f.Clock = func() time.Time { return now }

	return &flowFixture{
		flow:     f,
		agenda:   svc,
		payments: payments,
		sender:   &fakeSender{},
		tenant:   models.Tenant{ID: "empresa1", Name: "Barba Azul"},
		state:    models.NewConversationState(stageMenu),
		now:      now,
	}
}

func (fx *flowFixture) send(t *testing.T, text string) {
	t.Helper()
	err := fx.flow.ProcessNormal(context.Background(), "5511999990000@c.us", text, fx.tenant, fx.sender, fx.state)
	require.NoError(t, err)
}

// send services, name, instagram, date and slot choice in sequence
func (fx *flowFixture) bookHappyPath(t *testing.T) {
	t.Helper()
	fx.send(t, "agendar")
	fx.send(t, "1,4")
	fx.send(t, "pronto")
	fx.send(t, "joão da silva")
	fx.send(t, "@Joao.Silva")
	fx.send(t, "10/09")
	fx.send(t, "2")
}

func TestMenuRender(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "oi")

	menu := fx.sender.last()
	assert.Contains(t, menu, "💈 Barba Azul")
	assert.Contains(t, menu, "1️⃣ Agendar horário")
	assert.Contains(t, menu, "4️⃣ Falar com atendente")
	assert.Contains(t, menu, "Comandos rápidos")
	assert.Equal(t, stageMenu, fx.state.Stage)
}

func TestHappyPathBooking(t *testing.T) {
	fx := newFlowFixture(t)
	fx.bookHappyPath(t)

	// one charge created, reference carries the full snapshot
	assert.Equal(t, 1, fx.payments.calls)
	ref := fx.payments.lastRef
	assert.Equal(t, "empresa1", ref.Tenant)
	assert.Equal(t, "5511999990000@c.us", ref.ChatID)
	assert.Equal(t, "João da Silva", ref.Name)
	assert.Equal(t, "@joao.silva", ref.Instagram)
	assert.Equal(t, "2026-09-10", ref.Date)
	assert.Equal(t, "09:00", ref.TimeSlot)
	assert.InDelta(t, 60.0, ref.Total, 1e-9)
	require.Len(t, ref.LineItems, 2)

	// ledger row is Pending and holds the slot
	r, err := fx.agenda.Get(context.Background(), "empresa1", ref.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, "Corte social, Barba", r.Service)

	free, err := fx.agenda.IsSlotFree(context.Background(), "empresa1", "2026-09-10", "09:00")
	require.NoError(t, err)
	assert.False(t, free)

	// checkout message plus isolated copy-paste code
	assert.Contains(t, fx.sender.all(), "💳 PIX para confirmar")
	assert.Contains(t, fx.sender.all(), "Total: R$ 60,00")
	assert.Equal(t, "PIXCODE123", fx.sender.last())

	// back at the menu, with the quick-command context preserved
	assert.Equal(t, stageMenu, fx.state.Stage)
	assert.Equal(t, ref.ReservationID, fx.state.Context["ultimo_agendamento_id"])
}

func TestNameParticleCasing(t *testing.T) {
	assert.Equal(t, "João da Silva", formatCustomerName("JOÃO DA SILVA"))
	assert.Equal(t, "Maria de Souza e Silva", formatCustomerName("maria de souza e silva"))
	assert.Equal(t, "De Souza", formatCustomerName("de souza"))
}

func TestNameValidation(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")
	fx.send(t, "1")
	fx.send(t, "pronto")

	fx.send(t, "x9!!")
	assert.Contains(t, fx.sender.last(), "❌ Nome inválido")
	assert.Equal(t, stageAskName, fx.state.Stage)

	fx.send(t, "pular")
	assert.Equal(t, stageAskInstagram, fx.state.Stage)
	assert.Equal(t, "Cliente", fx.state.Context["nome_cliente"])
}

func TestInstagramValidation(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")
	fx.send(t, "1")
	fx.send(t, "pronto")
	fx.send(t, "maria")

	fx.send(t, "@not a handle!")
	assert.Contains(t, fx.sender.last(), "❌ @ inválido")
	assert.Equal(t, stageAskInstagram, fx.state.Stage)

	fx.send(t, "Maria.Souza_1")
	assert.Equal(t, stageAskDate, fx.state.Stage)
	assert.Equal(t, "@maria.souza_1", fx.state.Context["insta"])
}

func TestDateValidation(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")
	fx.send(t, "1")
	fx.send(t, "pronto")
	fx.send(t, "pular")
	fx.send(t, "pular")

	fx.send(t, "31/02")
	assert.Contains(t, fx.sender.last(), "❌ Data inválida")
	assert.Equal(t, stageAskDate, fx.state.Stage)

	// dates already past this year roll to the next one
	fx.send(t, "15/03")
	assert.Equal(t, stageAskSlot, fx.state.Stage)
	assert.Equal(t, "2027-03-15", fx.state.Context["data"])
}

func TestSlotTakenReprompts(t *testing.T) {
	fx := newFlowFixture(t)
	_, err := fx.agenda.Reserve(context.Background(), "empresa1", agenda.ReserveRequest{
		ChatID:       "other@c.us",
		CustomerName: "Outro Cliente",
		Date:         "2026-09-10",
		TimeSlot:     "09:00",
		LineItems:    []models.LineItem{{Title: "Barba", Quantity: 1, UnitPrice: 25}},
		TTL:          time.Hour,
	})
	require.NoError(t, err)

	fx.bookHappyPath(t)
	assert.Contains(t, fx.sender.last(), "❌ Horário indisponível")
	assert.Contains(t, fx.sender.last(), "❌ Ocupado — Outro Cliente")
	assert.Equal(t, stageAskSlot, fx.state.Stage)
	assert.Zero(t, fx.payments.calls)

	// picking a free slot then succeeds
	fx.send(t, "3")
	assert.Equal(t, 1, fx.payments.calls)
	assert.Equal(t, "10:00", fx.payments.lastRef.TimeSlot)
}

func TestCartAddRemoveClear(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")

	fx.send(t, "corte social, barba")
	assert.Equal(t, []string{"1", "4"}, fx.state.Context["servicos"])

	fx.send(t, "remover barba")
	assert.Equal(t, []string{"1"}, fx.state.Context["servicos"])
	assert.Contains(t, fx.sender.last(), "🗑 Removido")

	fx.send(t, "2")
	assert.Equal(t, []string{"1", "2"}, fx.state.Context["servicos"])

	fx.send(t, "limpar")
	assert.Empty(t, fx.state.Context["servicos"])
	assert.Contains(t, fx.sender.last(), "🧹 Seleção limpa!")

	fx.send(t, "pronto")
	assert.Contains(t, fx.sender.last(), "não selecionou nenhum serviço")
	assert.Equal(t, stageSelectServices, fx.state.Stage)
}

func TestKeycapDigitsAccepted(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")
	fx.send(t, "1️⃣")
	assert.Equal(t, []string{"1"}, fx.state.Context["servicos"])
}

func TestRepeatedTriggerDoesNotStackCurrentStage(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")
	require.Equal(t, stageSelectServices, fx.state.Stage)
	require.Equal(t, []string{stageMenu}, fx.state.Stack)

	// re-firing the trigger mid-stage must leave the navigation stack alone
	fx.send(t, "agendar")
	assert.Equal(t, stageSelectServices, fx.state.Stage)
	assert.Equal(t, []string{stageMenu}, fx.state.Stack)
	assert.NotContains(t, fx.state.Stack, fx.state.Stage)

	// so "voltar" goes to the menu, not back into the same stage
	fx.send(t, "voltar")
	assert.Equal(t, stageMenu, fx.state.Stage)
	assert.Empty(t, fx.state.Stack)
}

func TestUniversalCommandsMidFlow(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "agendar")
	require.Equal(t, stageSelectServices, fx.state.Stage)

	fx.send(t, "cancelar")
	assert.Equal(t, stageMenu, fx.state.Stage)
	assert.Contains(t, fx.sender.all(), "✅ Fluxo cancelado")

	fx.send(t, "agendar")
	fx.send(t, "voltar")
	assert.Equal(t, stageMenu, fx.state.Stage)

	fx.send(t, "voltar")
	assert.Contains(t, fx.sender.last(), "Você já está no início")

	fx.send(t, "ajuda")
	assert.Contains(t, fx.sender.last(), "🆘 Ajuda rápida")
}

func TestStatusQuickCommand(t *testing.T) {
	fx := newFlowFixture(t)

	fx.send(t, "status")
	assert.Contains(t, fx.sender.last(), "Não encontrei um pagamento pendente")

	fx.bookHappyPath(t)
	fx.send(t, "status do pagamento")
	assert.Contains(t, fx.sender.last(), "Status: *Pendente*")
}

func TestResendPix(t *testing.T) {
	fx := newFlowFixture(t)
	fx.bookHappyPath(t)
	require.Equal(t, 1, fx.payments.calls)

	fx.send(t, "reenviar pix")
	assert.Equal(t, 2, fx.payments.calls)
	assert.Contains(t, fx.sender.all(), "💳 Novo PIX")
	assert.Equal(t, "PIXCODE123", fx.sender.last())
}

func TestResendPixAfterExpiry(t *testing.T) {
	fx := newFlowFixture(t)
	fx.bookHappyPath(t)

	later := fx.now.Add(25 * time.Minute)
	fx.agenda.Clock = func() time.Time { return later }
	require.NoError(t, fx.agenda.ExpireStale(context.Background(), "empresa1"))

	fx.send(t, "reenviar pix")
	assert.Contains(t, fx.sender.last(), "⏰ Reserva expirada")
	assert.Equal(t, 1, fx.payments.calls)
}

func TestBrowseAvailability(t *testing.T) {
	fx := newFlowFixture(t)
	fx.send(t, "3")
	assert.Equal(t, stageBrowseSlots, fx.state.Stage)
	assert.Contains(t, fx.sender.last(), "📅 Consulta — 01/09/2026")
	assert.Contains(t, fx.sender.last(), "1 - 08:00 - ✅ Livre")

	fx.send(t, "10/09")
	assert.Contains(t, fx.sender.last(), "📅 Consulta — 10/09/2026")

	fx.send(t, "agendar")
	assert.Equal(t, stageSelectServices, fx.state.Stage)
}

func TestParseServiceTokens(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"1,3", []string{"1", "3"}},
		{"1 3", []string{"1", "3"}},
		{"corte social, barba", []string{"1", "4"}},
		{"barba", []string{"4"}},
		{"1, barba, 1", []string{"1", "4"}},
		{"nada disso", nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseServiceTokens(tc.in), "input %q", tc.in)
	}
}
