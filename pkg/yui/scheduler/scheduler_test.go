package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yuibot/yui/pkg/yui/provider"
	"github.com/yuibot/yui/pkg/yui/store"
)

type fakeStore struct {
	mu          sync.Mutex
	schedules   []store.ScheduleEntry
	spontaneous []string
	history     map[string][]store.Message
	deleted     []string
}

func (f *fakeStore) ListSchedules() ([]store.ScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.ScheduleEntry, len(f.schedules))
	copy(out, f.schedules)
	return out, nil
}

func (f *fakeStore) DeleteSchedule(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	kept := f.schedules[:0]
	for _, e := range f.schedules {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	f.schedules = kept
	return nil
}

func (f *fakeStore) SpontaneousChats() ([]string, error) {
	return f.spontaneous, nil
}

func (f *fakeStore) LoadHistory(chatID string) ([]store.Message, error) {
	return f.history[chatID], nil
}

type fakePersonas struct{}

func (fakePersonas) Get(chatID string) string { return "persona de teste" }

type fakeClient struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Generate(ctx context.Context, personaInstruction string, history []provider.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(history) > 0 {
		f.prompts = append(f.prompts, history[len(history)-1].Content)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type sentMsg struct {
	chatID string
	text   string
}

func collectDispatch(sent *[]sentMsg) DispatchFunc {
	var mu sync.Mutex
	return func(ctx context.Context, chatID, text string) error {
		mu.Lock()
		defer mu.Unlock()
		*sent = append(*sent, sentMsg{chatID: chatID, text: text})
		return nil
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func TestTickFiresMatchingSchedule(t *testing.T) {
	st := &fakeStore{schedules: []store.ScheduleEntry{
		{ID: "a", ChatID: "123", Hour: 8, Minute: 0, Frequency: store.FrequencyDaily, Message: "frase motivacional"},
	}}
	client := &fakeClient{reply: "Bom dia, Onii-chan!"}
	var sent []sentMsg
	s := New(st, fakePersonas{}, client, collectDispatch(&sent), Config{}, nil)
	s.rng = func() float64 { return 1 } // nunca dispara espontânea

	s.Tick(context.Background(), at(8, 0))
	if len(sent) != 1 {
		t.Fatalf("esperava 1 envio, houve %d", len(sent))
	}
	if sent[0].chatID != "123" || sent[0].text != "Bom dia, Onii-chan!" {
		t.Errorf("envio errado: %+v", sent[0])
	}
	if got := client.prompts[0]; got != "crie uma frase motivacional" {
		t.Errorf("prompt sintético errado: %q", got)
	}

	// Minuto seguinte não casa.
	s.Tick(context.Background(), at(8, 1))
	if len(sent) != 1 {
		t.Errorf("tick às 08:01 não deveria disparar, envios: %d", len(sent))
	}
	// Entrada daily não é removida.
	if len(st.deleted) != 0 {
		t.Errorf("entrada daily não deveria ser removida: %v", st.deleted)
	}
}

func TestOnceScheduleDeletedAfterDispatch(t *testing.T) {
	st := &fakeStore{schedules: []store.ScheduleEntry{
		{ID: "once-1", ChatID: "123", Hour: 21, Minute: 30, Frequency: store.FrequencyOnce, Message: "mensagem de boa noite"},
	}}
	client := &fakeClient{reply: "Boa noite!"}
	var sent []sentMsg
	s := New(st, fakePersonas{}, client, collectDispatch(&sent), Config{}, nil)
	s.rng = func() float64 { return 1 }

	s.Tick(context.Background(), at(21, 30))
	if len(sent) != 1 {
		t.Fatalf("esperava 1 envio, houve %d", len(sent))
	}
	if len(st.deleted) != 1 || st.deleted[0] != "once-1" {
		t.Errorf("entrada once deveria ser removida após o envio: %v", st.deleted)
	}

	// Mesmo horário no dia seguinte: nada dispara.
	s.Tick(context.Background(), at(21, 30))
	if len(sent) != 1 {
		t.Errorf("entrada once disparou de novo, envios: %d", len(sent))
	}
}

func TestOnceScheduleKeptOnFailure(t *testing.T) {
	st := &fakeStore{schedules: []store.ScheduleEntry{
		{ID: "once-1", ChatID: "123", Hour: 9, Minute: 0, Frequency: store.FrequencyOnce, Message: "x"},
	}}
	client := &fakeClient{err: errors.New("provedor fora do ar")}
	var sent []sentMsg
	s := New(st, fakePersonas{}, client, collectDispatch(&sent), Config{}, nil)
	s.rng = func() float64 { return 1 }

	s.Tick(context.Background(), at(9, 0))
	if len(sent) != 0 {
		t.Fatalf("falha do provedor não deveria enviar nada")
	}
	// A entrada segue viva para o próximo dia.
	if len(st.deleted) != 0 {
		t.Errorf("entrada once não deveria ser removida após falha: %v", st.deleted)
	}
}

func TestEntryFailureDoesNotAbortOthers(t *testing.T) {
	st := &fakeStore{schedules: []store.ScheduleEntry{
		{ID: "a", ChatID: "111", Hour: 8, Minute: 0, Frequency: store.FrequencyDaily, Message: "x"},
		{ID: "b", ChatID: "222", Hour: 8, Minute: 0, Frequency: store.FrequencyDaily, Message: "y"},
	}}
	client := &fakeClient{reply: "ok"}
	var sent []sentMsg
	var mu sync.Mutex
	dispatch := func(ctx context.Context, chatID, text string) error {
		mu.Lock()
		defer mu.Unlock()
		if chatID == "111" {
			return errors.New("chat bloqueou o bot")
		}
		sent = append(sent, sentMsg{chatID: chatID, text: text})
		return nil
	}
	s := New(st, fakePersonas{}, client, dispatch, Config{}, nil)
	s.rng = func() float64 { return 1 }

	s.Tick(context.Background(), at(8, 0))
	if len(sent) != 1 || sent[0].chatID != "222" {
		t.Errorf("a falha do chat 111 não deveria afetar o 222: %+v", sent)
	}
}

func TestSpontaneousRespectsToggleAndProbability(t *testing.T) {
	st := &fakeStore{
		spontaneous: []string{"123"},
		history: map[string][]store.Message{
			"123": {
				{Role: store.RoleUser, Content: "m1"},
				{Role: store.RoleAssistant, Content: "m2"},
			},
		},
	}
	client := &fakeClient{reply: "Oi! Lembrei de você 💖"}
	var sent []sentMsg
	s := New(st, fakePersonas{}, client, collectDispatch(&sent), Config{Probability: 0.01, HistoryWindow: 5}, nil)

	// Sorteio acima da probabilidade: nada acontece.
	s.rng = func() float64 { return 0.5 }
	s.Tick(context.Background(), at(10, 0))
	if len(sent) != 0 {
		t.Fatalf("sorteio perdido não deveria enviar nada")
	}

	// Sorteio abaixo da probabilidade: dispara com o contexto recente.
	s.rng = func() float64 { return 0.001 }
	s.Tick(context.Background(), at(10, 1))
	if len(sent) != 1 {
		t.Fatalf("esperava 1 envio espontâneo, houve %d", len(sent))
	}
	if !strings.Contains(client.prompts[len(client.prompts)-1], "espontânea") {
		t.Errorf("prompt espontâneo errado: %q", client.prompts)
	}
}

func TestSpontaneousDisabledNeverFires(t *testing.T) {
	st := &fakeStore{spontaneous: nil, history: map[string][]store.Message{}}
	client := &fakeClient{reply: "x"}
	var sent []sentMsg
	s := New(st, fakePersonas{}, client, collectDispatch(&sent), Config{}, nil)
	s.rng = func() float64 { return 0 } // sempre ganharia o sorteio

	for i := 0; i < 50; i++ {
		s.Tick(context.Background(), at(10, i%60))
	}
	if len(sent) != 0 {
		t.Errorf("chats sem opt-in nunca recebem espontânea, envios: %d", len(sent))
	}
}

func TestSpontaneousHistoryWindow(t *testing.T) {
	history := make([]store.Message, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, store.Message{Role: store.RoleUser, Content: string(rune('a' + i))})
	}
	st := &fakeStore{
		spontaneous: []string{"123"},
		history:     map[string][]store.Message{"123": history},
	}

	var gotHistory []provider.Message
	client := &windowClient{capture: &gotHistory}
	var sent []sentMsg
	s := New(st, fakePersonas{}, client, collectDispatch(&sent), Config{Probability: 0.01, HistoryWindow: 5}, nil)
	s.rng = func() float64 { return 0 }

	s.Tick(context.Background(), at(10, 0))
	// 5 mensagens de contexto + o prompt sintético.
	if len(gotHistory) != 6 {
		t.Fatalf("esperava janela de 5 + prompt, obteve %d mensagens", len(gotHistory))
	}
	if gotHistory[0].Content != "f" {
		t.Errorf("janela não pegou as mais recentes: %+v", gotHistory[0])
	}
}

type windowClient struct {
	capture *[]provider.Message
}

func (w *windowClient) Name() string { return "window" }

func (w *windowClient) Generate(ctx context.Context, personaInstruction string, history []provider.Message) (string, error) {
	*w.capture = append([]provider.Message(nil), history...)
	return "ok", nil
}
