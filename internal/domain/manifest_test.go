package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecVersionSupported(t *testing.T) {
	assert.True(t, SpecVersion("0.2").Supported())
	assert.True(t, SpecVersion("0.3").Supported())
	assert.False(t, SpecVersion("0.1").Supported())
	assert.False(t, SpecVersion("1.0").Supported())
	assert.False(t, SpecVersion("").Supported())
}

func TestAgentNotesMinLength(t *testing.T) {
	assert.Equal(t, 50, SpecVersionLegacy.AgentNotesMinLength())
	assert.Equal(t, 150, SpecVersionCurrent.AgentNotesMinLength())
	// Unsupported versions fall back to the legacy threshold; the spec
	// version check rejects them independently.
	assert.Equal(t, 50, SpecVersion("9.9").AgentNotesMinLength())
}

func TestPaymentShape(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		want     PaymentShape
	}{
		{
			name:     "no payment block",
			manifest: Manifest{SpecVersion: "0.3"},
			want:     PaymentShapeNone,
		},
		{
			name: "model under current version",
			manifest: Manifest{
				SpecVersion: "0.3",
				Payment:     &Payment{Model: PaymentModelPerRequest},
			},
			want: PaymentShapeCurrent,
		},
		{
			name: "model declared under legacy version stays legacy",
			manifest: Manifest{
				SpecVersion: "0.2",
				Payment:     &Payment{Model: PaymentModelPerRequest},
			},
			want: PaymentShapeLegacy,
		},
		{
			name: "checkout URLs without model",
			manifest: Manifest{
				SpecVersion: "0.2",
				Payment:     &Payment{CheckoutURL: "https://pay.example.com/checkout"},
			},
			want: PaymentShapeLegacy,
		},
		{
			name: "empty payment block under current version",
			manifest: Manifest{
				SpecVersion: "0.3",
				Payment:     &Payment{},
			},
			want: PaymentShapeLegacy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.manifest.PaymentShape())
		})
	}
}

func TestPaymentModelDerivation(t *testing.T) {
	m := Manifest{SpecVersion: "0.3"}
	assert.Equal(t, "", m.PaymentModel())

	m.Payment = &Payment{Model: PaymentModelFree}
	assert.Equal(t, "free", m.PaymentModel())

	m.Payment = &Payment{Model: PaymentModelPrepaidCredits}
	assert.Equal(t, "prepaid_credits", m.PaymentModel())
}

func TestHasNonFreePayment(t *testing.T) {
	m := Manifest{SpecVersion: "0.3"}
	assert.False(t, m.HasNonFreePayment())

	m.Payment = &Payment{Model: PaymentModelFree}
	assert.False(t, m.HasNonFreePayment())

	m.Payment = &Payment{Model: PaymentModelSubscription}
	assert.True(t, m.HasNonFreePayment())

	// Legacy blocks never count as non-free current payment.
	m.SpecVersion = "0.2"
	assert.False(t, m.HasNonFreePayment())
}

func TestEndpointTestable(t *testing.T) {
	assert.True(t, Endpoint{Path: "/search", Method: "GET"}.Testable())
	assert.True(t, Endpoint{
		Path:       "/search",
		Method:     "GET",
		Parameters: []Parameter{{Name: "q", Required: false}},
	}.Testable())
	assert.False(t, Endpoint{
		Path:       "/search",
		Method:     "GET",
		Parameters: []Parameter{{Name: "q", Required: true}},
	}.Testable())
	assert.False(t, Endpoint{Path: "/submit", Method: "POST"}.Testable())
	assert.False(t, Endpoint{Path: "/item", Method: "DELETE"}.Testable())
}

func TestContactStringOrObject(t *testing.T) {
	var c Contact
	require.NoError(t, json.Unmarshal([]byte(`"ops@example.com"`), &c))
	assert.Equal(t, "ops@example.com", c.Raw)
	assert.Equal(t, "ops@example.com", c.String())

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `"ops@example.com"`, string(out))

	var obj Contact
	require.NoError(t, json.Unmarshal([]byte(`{"email":"dev@example.com","url":"https://example.com/support"}`), &obj))
	assert.Equal(t, "dev@example.com", obj.Email)
	assert.Equal(t, "https://example.com/support", obj.URL)
	assert.Equal(t, "dev@example.com", obj.String())

	assert.Error(t, json.Unmarshal([]byte(`42`), &c))
}

func TestContactInsideManifest(t *testing.T) {
	raw := `{"spec_version":"0.2","name":"t","description":"d","contact":"admin@example.com"}`
	var m Manifest
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	require.NotNil(t, m.Contact)
	assert.Equal(t, "admin@example.com", m.Contact.Raw)
}

func TestDefaultReliability(t *testing.T) {
	assert.Equal(t, 0.99, DefaultReliability.UptimeTarget)
}
