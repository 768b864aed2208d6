package service

// Websocket event names
const (
	EventLedgerChanged  = "ledger.changed"
	EventReportComputed = "report.computed"
	EventRatesChanged   = "tax_rates.changed"
)

// EventPublisher pushes realtime notifications to connected dashboards.
type EventPublisher interface {
	Publish(event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
