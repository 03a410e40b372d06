package webhooks

import "time"

// Well-known event types emitted by the platform's domain services. Event
// types are free-form tags: subscription filtering is exact-match and the
// engine does not restrict the vocabulary to this list.
const (
	EventMeterReadingCreated = "meter_reading.created"
	EventMeterReadingAnomaly = "meter_reading.anomaly"
	EventDeviceOnline        = "device.online"
	EventDeviceOffline       = "device.offline"
	EventSiteCreated         = "site.created"
	EventSiteUpdated         = "site.updated"
	EventInvoiceGenerated    = "invoice.generated"
	EventInvoicePaid         = "invoice.paid"
	EventAlertTriggered      = "alert.triggered"
	EventTariffUpdated       = "tariff.updated"
)

// Event is a logical event triggered by a domain service
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	TenantID  string                 `json:"tenant_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// envelope is the wire format POSTed to endpoints. The signature covers the
// serialized envelope bytes exactly as transmitted.
type envelope struct {
	Event     string                 `json:"event"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}
