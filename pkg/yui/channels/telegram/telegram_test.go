package telegram

import (
	"testing"
)

func update(chatID int64, chatType, text string, fromID int64) tgUpdate {
	return tgUpdate{
		UpdateID: 1,
		Message: &tgMessage{
			MessageID: 42,
			From:      &tgUser{ID: fromID, FirstName: "Ana"},
			Chat:      tgChat{ID: chatID, Type: chatType},
			Date:      1700000000,
			Text:      text,
		},
	}
}

func TestProcessUpdateMapsFields(t *testing.T) {
	tg := New(DefaultConfig(), nil)

	tg.processUpdate(update(123, "private", "oi yui", 777))

	select {
	case msg := <-tg.Receive():
		if msg.Channel != "telegram" {
			t.Errorf("channel errado: %q", msg.Channel)
		}
		if msg.ChatID != "123" || msg.From != "777" {
			t.Errorf("ids errados: chat=%q from=%q", msg.ChatID, msg.From)
		}
		if msg.Content != "oi yui" || msg.FromName != "Ana" || msg.IsGroup {
			t.Errorf("mensagem mapeada errada: %+v", msg)
		}
	default:
		t.Fatal("mensagem não foi enfileirada")
	}
}

func TestProcessUpdateIgnoresNonText(t *testing.T) {
	tg := New(DefaultConfig(), nil)

	u := update(123, "private", "", 777) // figurinha/foto: sem texto
	tg.processUpdate(u)

	select {
	case msg := <-tg.Receive():
		t.Fatalf("update sem texto não deveria virar mensagem: %+v", msg)
	default:
	}
}

func TestProcessUpdateGroupFilter(t *testing.T) {
	cfg := DefaultConfig() // grupos desligados por padrão
	tg := New(cfg, nil)

	tg.processUpdate(update(-100, "supergroup", "oi", 777))
	select {
	case <-tg.Receive():
		t.Fatal("grupo deveria ser filtrado com RespondToGroups=false")
	default:
	}

	cfg.RespondToGroups = true
	tg = New(cfg, nil)
	tg.processUpdate(update(-100, "supergroup", "oi", 777))
	select {
	case msg := <-tg.Receive():
		if !msg.IsGroup {
			t.Error("mensagem de supergroup deveria marcar IsGroup")
		}
	default:
		t.Fatal("grupo habilitado deveria passar")
	}
}

func TestProcessUpdateAllowedChats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedChats = []int64{555}
	tg := New(cfg, nil)

	tg.processUpdate(update(123, "private", "oi", 777))
	select {
	case <-tg.Receive():
		t.Fatal("chat fora da lista deveria ser filtrado")
	default:
	}

	tg.processUpdate(update(555, "private", "oi", 777))
	select {
	case <-tg.Receive():
	default:
		t.Fatal("chat da lista deveria passar")
	}
}

func TestProcessUpdateEditedMessage(t *testing.T) {
	tg := New(DefaultConfig(), nil)

	u := tgUpdate{
		UpdateID: 2,
		EditedMessage: &tgMessage{
			MessageID: 43,
			From:      &tgUser{ID: 777},
			Chat:      tgChat{ID: 123, Type: "private"},
			Text:      "texto corrigido",
		},
	}
	tg.processUpdate(u)

	select {
	case msg := <-tg.Receive():
		if msg.Content != "texto corrigido" {
			t.Errorf("edição deveria chegar como mensagem nova: %+v", msg)
		}
	default:
		t.Fatal("edição não foi enfileirada")
	}
}
