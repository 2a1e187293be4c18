package bot

import (
	"strings"
	"testing"

	"github.com/yuibot/yui/pkg/yui/store"
)

type fakeCmdStore struct {
	cleared     []string
	schedules   []store.ScheduleEntry
	deleted     []string
	spontaneous map[string]bool
	saveErr     error
}

func (f *fakeCmdStore) ClearHistory(chatID string) error {
	f.cleared = append(f.cleared, chatID)
	return nil
}

func (f *fakeCmdStore) SaveSchedule(chatID string, hour, minute int, frequency store.Frequency, message string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	entry := store.ScheduleEntry{
		ID: "sched-1", ChatID: chatID, Hour: hour, Minute: minute,
		Frequency: frequency, Message: message,
	}
	f.schedules = append(f.schedules, entry)
	return entry.ID, nil
}

func (f *fakeCmdStore) ChatSchedules(chatID string) ([]store.ScheduleEntry, error) {
	var out []store.ScheduleEntry
	for _, e := range f.schedules {
		if e.ChatID == chatID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCmdStore) DeleteSchedule(id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCmdStore) SetSpontaneousEnabled(chatID string, enabled bool) error {
	if f.spontaneous == nil {
		f.spontaneous = make(map[string]bool)
	}
	f.spontaneous[chatID] = enabled
	return nil
}

type fakeSetter struct {
	personas map[string]string
}

func (f *fakeSetter) Set(chatID, instruction string) error {
	if f.personas == nil {
		f.personas = make(map[string]string)
	}
	f.personas[chatID] = instruction
	return nil
}

type fakeCanceler struct {
	pending  map[string]bool
	canceled []string
}

func (f *fakeCanceler) CancelPending(chatID string) bool {
	if f.pending[chatID] {
		delete(f.pending, chatID)
		f.canceled = append(f.canceled, chatID)
		return true
	}
	return false
}

func newTestCommands() (*Commands, *fakeCmdStore, *fakeSetter, *fakeCanceler) {
	st := &fakeCmdStore{}
	setter := &fakeSetter{}
	canceler := &fakeCanceler{pending: make(map[string]bool)}
	return NewCommands(st, setter, canceler, "Yui", nil), st, setter, canceler
}

func TestIsCommand(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"/start", true},
		{"  /limpar", true},
		{"oi, tudo bem?", false},
		{"me manda /start", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsCommand(tt.text); got != tt.want {
			t.Errorf("IsCommand(%q) = %v, quer %v", tt.text, got, tt.want)
		}
	}
}

func TestClearCommand(t *testing.T) {
	c, st, _, _ := newTestCommands()

	reply := c.Handle("123", "/limpar")
	if !strings.Contains(reply, "Apaguei") {
		t.Errorf("resposta inesperada: %q", reply)
	}
	if len(st.cleared) != 1 || st.cleared[0] != "123" {
		t.Errorf("histórico não limpo: %v", st.cleared)
	}
}

func TestPersonaCommand(t *testing.T) {
	c, _, setter, _ := newTestCommands()

	reply := c.Handle("123", "/personalidade seja formal e objetiva")
	if !strings.Contains(reply, "Entendido") {
		t.Errorf("resposta inesperada: %q", reply)
	}
	if setter.personas["123"] != "seja formal e objetiva" {
		t.Errorf("persona não gravada: %v", setter.personas)
	}

	// Sem argumento mostra o uso, sem gravar nada.
	reply = c.Handle("123", "/personalidade")
	if !strings.Contains(reply, "/personalidade") {
		t.Errorf("esperava texto de uso, obteve %q", reply)
	}
}

func TestScheduleCommand(t *testing.T) {
	c, st, _, _ := newTestCommands()

	reply := c.Handle("123", "/agendar 08:00 daily frase motivacional")
	if !strings.Contains(reply, "Agendado") {
		t.Fatalf("resposta inesperada: %q", reply)
	}
	if len(st.schedules) != 1 {
		t.Fatalf("agendamento não gravado")
	}
	e := st.schedules[0]
	if e.Hour != 8 || e.Minute != 0 || e.Frequency != store.FrequencyDaily || e.Message != "frase motivacional" {
		t.Errorf("agendamento errado: %+v", e)
	}
}

func TestScheduleCommandValidation(t *testing.T) {
	c, st, _, _ := newTestCommands()
	st.saveErr = &store.ValidationError{Reason: "hora inválida 25: use um valor entre 0 e 23"}

	// O texto do erro de validação vai literal para o usuário.
	reply := c.Handle("123", "/agendar 25:00 daily x")
	if reply != "hora inválida 25: use um valor entre 0 e 23" {
		t.Errorf("erro de validação não foi literal: %q", reply)
	}
}

func TestScheduleCommandBadClock(t *testing.T) {
	c, st, _, _ := newTestCommands()

	reply := c.Handle("123", "/agendar oito daily x")
	if !strings.Contains(reply, "horário inválido") {
		t.Errorf("resposta inesperada: %q", reply)
	}
	if len(st.schedules) != 0 {
		t.Error("nada deveria ter sido gravado")
	}
}

func TestListSchedulesCommand(t *testing.T) {
	c, _, _, _ := newTestCommands()

	reply := c.Handle("123", "/agendamentos")
	if !strings.Contains(reply, "nenhum agendamento") {
		t.Errorf("lista vazia deveria avisar: %q", reply)
	}

	c.Handle("123", "/agendar 21:30 once mensagem de boa noite")
	reply = c.Handle("123", "/agendamentos")
	if !strings.Contains(reply, "21:30") || !strings.Contains(reply, "mensagem de boa noite") {
		t.Errorf("lista não mostra a entrada: %q", reply)
	}
}

func TestUnscheduleCommand(t *testing.T) {
	c, st, _, _ := newTestCommands()

	reply := c.Handle("123", "/desagendar sched-1")
	if !strings.Contains(reply, "removido") {
		t.Errorf("resposta inesperada: %q", reply)
	}
	if len(st.deleted) != 1 || st.deleted[0] != "sched-1" {
		t.Errorf("remoção não delegada: %v", st.deleted)
	}
}

func TestSpontaneousCommand(t *testing.T) {
	c, st, _, _ := newTestCommands()

	reply := c.Handle("123", "/espontanea on")
	if !strings.Contains(reply, "ligado") {
		t.Errorf("resposta inesperada: %q", reply)
	}
	if !st.spontaneous["123"] {
		t.Error("toggle não gravado")
	}

	reply = c.Handle("123", "/espontanea off")
	if !strings.Contains(reply, "desligado") {
		t.Errorf("resposta inesperada: %q", reply)
	}
	if st.spontaneous["123"] {
		t.Error("toggle não desligado")
	}

	// Argumento fora de on|off vai literal como erro de validação.
	reply = c.Handle("123", "/espontanea talvez")
	if !strings.Contains(reply, `valor inválido "talvez"`) {
		t.Errorf("resposta inesperada: %q", reply)
	}
}

func TestCommandCancelsPendingFallback(t *testing.T) {
	c, _, _, canceler := newTestCommands()
	canceler.pending["123"] = true

	c.Handle("123", "/limpar")
	if len(canceler.canceled) != 1 || canceler.canceled[0] != "123" {
		t.Errorf("comando deveria cancelar a pendência: %v", canceler.canceled)
	}
}

func TestUnknownCommand(t *testing.T) {
	c, _, _, _ := newTestCommands()

	reply := c.Handle("123", "/virar_gato")
	if !strings.Contains(reply, "Não conheço") {
		t.Errorf("resposta inesperada: %q", reply)
	}
}

func TestCommandWithBotSuffix(t *testing.T) {
	c, st, _, _ := newTestCommands()

	// Em grupos o Telegram manda "/comando@NomeDoBot".
	c.Handle("123", "/limpar@YuiBot")
	if len(st.cleared) != 1 {
		t.Error("sufixo @bot deveria ser ignorado")
	}
}
