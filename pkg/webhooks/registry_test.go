package webhooks

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEndpoint() *Endpoint {
	return &Endpoint{
		URL:    "https://example.com/hook",
		Secret: "supersecret",
		Events: []string{EventMeterReadingCreated},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	ep := validEndpoint()
	require.NoError(t, r.Register(ep))

	assert.NotEmpty(t, ep.ID)
	assert.True(t, ep.Enabled)
	assert.False(t, ep.CreatedAt.IsZero())
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		ep   *Endpoint
	}{
		{"missing URL", &Endpoint{Secret: "s", Events: []string{EventSiteCreated}}},
		{"bad scheme", &Endpoint{URL: "ftp://example.com", Secret: "s", Events: []string{EventSiteCreated}}},
		{"not a URL", &Endpoint{URL: "://", Secret: "s", Events: []string{EventSiteCreated}}},
		{"missing secret", &Endpoint{URL: "https://example.com", Events: []string{EventSiteCreated}}},
		{"no events", &Endpoint{URL: "https://example.com", Secret: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.Register(tt.ep))
		})
	}
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_RegisterUpdatePreservesCreatedAtAndSecret(t *testing.T) {
	r := NewRegistry()

	ep := validEndpoint()
	require.NoError(t, r.Register(ep))
	require.NoError(t, r.Disable(ep.ID))

	// an update with a redacted (empty) secret keeps the stored one
	update := &Endpoint{
		ID:     ep.ID,
		URL:    "https://example.com/hook/v2",
		Events: []string{EventMeterReadingCreated, EventDeviceOffline},
	}
	require.NoError(t, r.Register(update))

	stored, err := r.Get(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook/v2", stored.URL)
	assert.Equal(t, "supersecret", stored.Secret)
	assert.Equal(t, ep.CreatedAt, stored.CreatedAt)
	assert.False(t, stored.Enabled)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()

	ep := validEndpoint()
	require.NoError(t, r.Register(ep))
	require.NoError(t, r.Unregister(ep.ID))
	assert.Equal(t, 0, r.Count())

	assert.ErrorIs(t, r.Unregister(ep.ID), ErrEndpointNotFound)
}

func TestRegistry_EnableDisable(t *testing.T) {
	r := NewRegistry()

	ep := validEndpoint()
	require.NoError(t, r.Register(ep))

	require.NoError(t, r.Disable(ep.ID))
	stored, err := r.Get(ep.ID)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)

	require.NoError(t, r.Enable(ep.ID))
	stored, err = r.Get(ep.ID)
	require.NoError(t, err)
	assert.True(t, stored.Enabled)

	assert.ErrorIs(t, r.Enable("missing"), ErrEndpointNotFound)
	assert.ErrorIs(t, r.Disable("missing"), ErrEndpointNotFound)
}

func TestRegistry_Match(t *testing.T) {
	r := NewRegistry()

	tenantA := &Endpoint{
		URL:      "https://a.example.com",
		Secret:   "s",
		Events:   []string{EventMeterReadingCreated},
		TenantID: "tenant-a",
	}
	tenantB := &Endpoint{
		URL:      "https://b.example.com",
		Secret:   "s",
		Events:   []string{EventMeterReadingCreated},
		TenantID: "tenant-b",
	}
	global := &Endpoint{
		URL:    "https://global.example.com",
		Secret: "s",
		Events: []string{EventMeterReadingCreated, EventAlertTriggered},
	}
	require.NoError(t, r.Register(tenantA))
	require.NoError(t, r.Register(tenantB))
	require.NoError(t, r.Register(global))

	// tenant scope matches that tenant's endpoints plus global subscribers
	matches := r.Match(EventMeterReadingCreated, "tenant-a")
	require.Len(t, matches, 2)

	// empty scope matches everything subscribed
	matches = r.Match(EventMeterReadingCreated, "")
	require.Len(t, matches, 3)

	// event type filters
	matches = r.Match(EventAlertTriggered, "tenant-a")
	require.Len(t, matches, 1)
	assert.Equal(t, global.ID, matches[0].ID)

	// disabled endpoints never match
	require.NoError(t, r.Disable(global.ID))
	matches = r.Match(EventAlertTriggered, "tenant-a")
	assert.Empty(t, matches)
}

func TestEndpoint_SecretRedactedInJSON(t *testing.T) {
	ep := Endpoint{URL: "https://example.com", Secret: "supersecret", Events: []string{EventSiteCreated}}

	data, err := json.Marshal(ep)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "supersecret")
	assert.Contains(t, string(data), "****cret")
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry()

	ep := validEndpoint()
	require.NoError(t, r.Register(ep))

	got, err := r.Get(ep.ID)
	require.NoError(t, err)
	got.URL = "https://mutated.example.com"

	stored, err := r.Get(ep.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", stored.URL)
}
