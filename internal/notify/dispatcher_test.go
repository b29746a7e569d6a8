package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"visage/internal/domain"
)

type sentMessage struct {
	chatRef int64
	text    string
	replyTo int
}

type sentPhoto struct {
	chatRef int64
	path    string
	caption string
}

type fakeSender struct {
	messages []sentMessage
	photos   []sentPhoto
	err      error
}

func (f *fakeSender) SendMessage(chatRef int64, text string, replyTo int) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, sentMessage{chatRef, text, replyTo})
	return nil
}

func (f *fakeSender) SendPhoto(chatRef int64, photoPath, caption string, replyTo int) error {
	if f.err != nil {
		return f.err
	}
	f.photos = append(f.photos, sentPhoto{chatRef, photoPath, caption})
	return nil
}

func newDispatcher() (*Dispatcher, *fakeSender) {
	s := &fakeSender{}
	return NewDispatcher(s, zerolog.New(io.Discard)), s
}

func TestHandleCompleteWithCard(t *testing.T) {
	d, s := newDispatcher()
	payload, _ := json.Marshal(domain.CompletePayload{
		Summary:      "резюме",
		Description:  "полный разбор",
		CardImageRef: "/tmp/card.jpg",
	})
	d.Handle(context.Background(), domain.Notification{
		Type:       domain.NotifyAnalysisComplete,
		ChatRef:    7,
		MessageRef: 3,
		Payload:    payload,
	})

	if len(s.messages) != 1 || s.messages[0].text != "полный разбор" || s.messages[0].replyTo != 3 {
		t.Fatalf("unexpected messages: %+v", s.messages)
	}
	if len(s.photos) != 1 || s.photos[0].caption != "резюме" {
		t.Fatalf("unexpected photos: %+v", s.photos)
	}
}

func TestHandleCompleteWithoutCard(t *testing.T) {
	d, s := newDispatcher()
	payload, _ := json.Marshal(domain.CompletePayload{Description: "разбор"})
	d.Handle(context.Background(), domain.Notification{
		Type:    domain.NotifyAnalysisComplete,
		ChatRef: 7,
		Payload: payload,
	})
	if len(s.photos) != 0 {
		t.Fatalf("no card means no photo send")
	}
	if len(s.messages) != 1 {
		t.Fatalf("expected one message")
	}
}

func TestHandleCompensationTexts(t *testing.T) {
	d, s := newDispatcher()
	for _, kind := range []domain.NotificationType{
		domain.NotifyFaceNotDetected,
		domain.NotifyAnalysisRefusal,
		domain.NotifyAnalysisFailed,
	} {
		d.Handle(context.Background(), domain.Notification{Type: kind, ChatRef: 7})
	}
	if len(s.messages) != 3 {
		t.Fatalf("expected three messages, got %d", len(s.messages))
	}
	seen := map[string]bool{}
	for _, m := range s.messages {
		seen[m.text] = true
	}
	if len(seen) != 3 {
		t.Fatalf("each branch needs its own text: %+v", s.messages)
	}
}

func TestHandleFunnelBody(t *testing.T) {
	d, s := newDispatcher()
	payload, _ := json.Marshal(domain.FunnelPayload{Body: "привет"})
	d.Handle(context.Background(), domain.Notification{
		Type:    domain.NotifyFunnelMessage,
		ChatRef: 9,
		Payload: payload,
	})
	if len(s.messages) != 1 || s.messages[0].text != "привет" {
		t.Fatalf("unexpected messages: %+v", s.messages)
	}

	d.Handle(context.Background(), domain.Notification{Type: domain.NotifyFunnelMessage, ChatRef: 9})
	if len(s.messages) != 1 {
		t.Fatalf("empty funnel body must be dropped")
	}
}

func TestHandleMissingChatRefDropped(t *testing.T) {
	d, s := newDispatcher()
	d.Handle(context.Background(), domain.Notification{Type: domain.NotifyAnalysisFailed})
	if len(s.messages) != 0 {
		t.Fatalf("no chat ref means no delivery")
	}
}

func TestHandleDeliveryErrorSwallowed(t *testing.T) {
	d, s := newDispatcher()
	s.err = errors.New("blocked by user")
	d.Handle(context.Background(), domain.Notification{Type: domain.NotifyAnalysisFailed, ChatRef: 7})
	// Nothing to assert beyond not panicking; delivery is fire-and-forget.
}
