package service

import (
	"encoding/json"

	ws "opticinvoicer/internal/websocket"

	"go.uber.org/zap"
)

// Events pushed to connected back-office clients.
const (
	EventInvoiceCreated  = "invoice_created"
	EventInvoiceUpdated  = "invoice_updated"
	EventPaymentReceived = "payment_received"
	EventPaymentVoided   = "payment_voided"
	EventStockOut        = "stock_out"
)

// Notifier fans events out to live clients. Delivery is best effort; a
// failed broadcast never fails the operation that triggered it.
type Notifier interface {
	Notify(event string, data map[string]interface{})
}

type hubNotifier struct {
	hub *ws.Hub
	log *zap.Logger
}

func NewHubNotifier(hub *ws.Hub, log *zap.Logger) Notifier {
	return &hubNotifier{hub: hub, log: log}
}

func (n *hubNotifier) Notify(event string, data map[string]interface{}) {
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		n.log.Warn("failed to encode websocket event", zap.String("event", event), zap.Error(err))
		return
	}
	select {
	case n.hub.Broadcast <- payload:
	default:
		n.log.Warn("websocket broadcast queue full, event dropped", zap.String("event", event))
	}
}

// Mailer delivers account emails (staff invitations, password resets).
// Failures are logged and swallowed by callers; mail never gates a request.
type Mailer interface {
	Send(to, subject, body string) error
}

type logMailer struct {
	log *zap.Logger
}

// NewLogMailer returns a Mailer that records outbound mail in the log. It
// stands in until an SMTP or provider credential is configured.
func NewLogMailer(log *zap.Logger) Mailer {
	return &logMailer{log: log}
}

func (m *logMailer) Send(to, subject, body string) error {
	m.log.Info("outbound mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}
