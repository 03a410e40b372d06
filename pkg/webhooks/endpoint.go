package webhooks

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Endpoint is a configured delivery target
type Endpoint struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"secret,omitempty"`
	Events    []string  `json:"events"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarshalJSON redacts the shared secret; it is never returned in full
func (e Endpoint) MarshalJSON() ([]byte, error) {
	type alias Endpoint
	a := alias(e)
	a.Secret = redactSecret(e.Secret)
	return json.Marshal(a)
}

// redactSecret keeps the last four characters for identification
func redactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

// validate checks an endpoint at registration time; misconfiguration is a
// caller-visible error here, never at delivery time
func (e *Endpoint) validate() error {
	if e.URL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("webhook URL must be a valid http(s) URL")
	}
	if e.Secret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	if len(e.Events) == 0 {
		return fmt.Errorf("at least one event type is required")
	}
	return nil
}

// subscribedTo reports whether the endpoint subscribes to the event type
func (e *Endpoint) subscribedTo(eventType string) bool {
	for _, ev := range e.Events {
		if ev == eventType {
			return true
		}
	}
	return false
}
