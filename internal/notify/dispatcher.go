// Package notify turns bus envelopes into outbound chat messages. It is the
// delivery end of the fire-and-forget pipeline: failures are logged and the
// event is gone.
package notify

import (
	"context"
	"encoding/json"

	"visage/internal/domain"
	"visage/internal/infra"
)

// Sender is the outbound chat surface.
type Sender interface {
	SendMessage(chatRef int64, text string, replyTo int) error
	SendPhoto(chatRef int64, photoPath, caption string, replyTo int) error
}

const (
	textAnalysisFailed  = "Не удалось выполнить анализ. Попробуйте ещё раз позже."
	textFaceNotDetected = "На фото не найдено лицо. Кредит возвращён, пришлите другое фото."
	textAnalysisRefusal = "Анализ этого фото выполнить не получилось. Кредит возвращён."
	textNewReferral     = "По вашей ссылке пришёл новый пользователь!"
	textPaymentReceived = "Платёж получен, кредиты зачислены."
)

type Dispatcher struct {
	sender Sender
	logger infra.Logger
}

func NewDispatcher(sender Sender, logger infra.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Handle delivers one envelope. Signature matches bus.Handler.
func (d *Dispatcher) Handle(ctx context.Context, n domain.Notification) {
	if n.ChatRef == 0 {
		d.logger.Warn().Str("type", string(n.Type)).Msg("notify: envelope without chat ref")
		return
	}
	var err error
	switch n.Type {
	case domain.NotifyAnalysisComplete:
		err = d.deliverComplete(n)
	case domain.NotifyAnalysisFailed:
		err = d.sender.SendMessage(n.ChatRef, textAnalysisFailed, n.MessageRef)
	case domain.NotifyFaceNotDetected:
		err = d.sender.SendMessage(n.ChatRef, textFaceNotDetected, n.MessageRef)
	case domain.NotifyAnalysisRefusal:
		err = d.sender.SendMessage(n.ChatRef, textAnalysisRefusal, n.MessageRef)
	case domain.NotifyFunnelMessage:
		var payload domain.FunnelPayload
		if jsonErr := json.Unmarshal(n.Payload, &payload); jsonErr != nil || payload.Body == "" {
			d.logger.Warn().Str("user_id", n.UserID).Msg("notify: funnel envelope without body")
			return
		}
		err = d.sender.SendMessage(n.ChatRef, payload.Body, 0)
	case domain.NotifyNewReferral:
		err = d.sender.SendMessage(n.ChatRef, textNewReferral, 0)
	case domain.NotifyPaymentReceived:
		err = d.sender.SendMessage(n.ChatRef, textPaymentReceived, 0)
	default:
		d.logger.Warn().Str("type", string(n.Type)).Msg("notify: unhandled notification type")
		return
	}
	if err != nil {
		d.logger.Error().Err(err).
			Str("type", string(n.Type)).
			Str("user_id", n.UserID).
			Msg("notify: delivery failed")
	}
}

func (d *Dispatcher) deliverComplete(n domain.Notification) error {
	var payload domain.CompletePayload
	if err := json.Unmarshal(n.Payload, &payload); err != nil {
		return err
	}
	if err := d.sender.SendMessage(n.ChatRef, payload.Description, n.MessageRef); err != nil {
		return err
	}
	// The share card rides along when it exists; its absence is normal.
	if payload.CardImageRef != "" {
		return d.sender.SendPhoto(n.ChatRef, payload.CardImageRef, payload.Summary, 0)
	}
	return nil
}
