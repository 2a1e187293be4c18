package channels

import (
	"context"
	"testing"
	"time"
)

// fakeChannel é um canal em memória para os testes do manager.
type fakeChannel struct {
	name       string
	incoming   chan *IncomingMessage
	sent       []*OutgoingMessage
	connected  bool
	connectErr error
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{
		name:     name,
		incoming: make(chan *IncomingMessage, 8),
	}
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeChannel) Disconnect() error {
	if f.connected {
		f.connected = false
		close(f.incoming)
	}
	return nil
}

func (f *fakeChannel) Send(ctx context.Context, to string, msg *OutgoingMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) Receive() <-chan *IncomingMessage { return f.incoming }
func (f *fakeChannel) IsConnected() bool                { return f.connected }
func (f *fakeChannel) Health() HealthStatus             { return HealthStatus{Connected: f.connected} }

func TestRegisterDuplicate(t *testing.T) {
	m := NewManager(nil)
	if err := m.Register(newFakeChannel("telegram")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Register(newFakeChannel("telegram")); err == nil {
		t.Error("registro duplicado deveria falhar")
	}
}

func TestMessagesAggregatedAndStopCloses(t *testing.T) {
	m := NewManager(nil)
	ch := newFakeChannel("telegram")
	if err := m.Register(ch); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ch.incoming <- &IncomingMessage{Channel: "telegram", ChatID: "123", Content: "oi"}

	select {
	case msg := <-m.Messages():
		if msg.ChatID != "123" || msg.Content != "oi" {
			t.Errorf("mensagem errada: %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("mensagem não chegou no stream agregado")
	}

	m.Stop()

	// Depois do Stop o stream agregado fecha, permitindo range no consumidor.
	select {
	case _, ok := <-m.Messages():
		if ok {
			t.Error("stream deveria estar fechado e vazio")
		}
	case <-time.After(time.Second):
		t.Fatal("stream não fechou após Stop")
	}
}

func TestSendRoutesToChannel(t *testing.T) {
	m := NewManager(nil)
	ch := newFakeChannel("telegram")
	m.Register(ch)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	if err := m.Send(context.Background(), "telegram", "123", &OutgoingMessage{Content: "olá"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(ch.sent) != 1 || ch.sent[0].Content != "olá" {
		t.Errorf("mensagem não roteada: %+v", ch.sent)
	}

	if err := m.Send(context.Background(), "discord", "123", &OutgoingMessage{Content: "x"}); err == nil {
		t.Error("canal inexistente deveria falhar")
	}
}

func TestStartFailsWhenNothingConnects(t *testing.T) {
	m := NewManager(nil)
	ch := newFakeChannel("telegram")
	ch.connectErr = ErrConnectionFailed
	m.Register(ch)

	if err := m.Start(context.Background()); err == nil {
		t.Error("nenhum canal conectado deveria ser erro")
	}
}
