package gateway

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func signedHeader(timestamp int64, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, ComputeSignature(timestamp, payload, secret))
}

func TestConstructEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		payload []byte
		header  string
		wantErr bool
	}{
		{
			name:    "valid signature",
			payload: payload,
			header:  signedHeader(now.Unix(), payload, testSecret),
		},
		{
			name:    "signature just inside tolerance",
			payload: payload,
			header:  signedHeader(now.Add(-4*time.Minute).Unix(), payload, testSecret),
		},
		{
			name:    "wrong secret",
			payload: payload,
			header:  signedHeader(now.Unix(), payload, "whsec_other"),
			wantErr: true,
		},
		{
			name:    "tampered payload",
			payload: []byte(`{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`),
			header:  signedHeader(now.Unix(), payload, testSecret),
			wantErr: true,
		},
		{
			name:    "stale timestamp",
			payload: payload,
			header:  signedHeader(now.Add(-6*time.Minute).Unix(), payload, testSecret),
			wantErr: true,
		},
		{
			name:    "future timestamp outside tolerance",
			payload: payload,
			header:  signedHeader(now.Add(6*time.Minute).Unix(), payload, testSecret),
			wantErr: true,
		},
		{
			name:    "missing header",
			payload: payload,
			header:  "",
			wantErr: true,
		},
		{
			name:    "malformed header",
			payload: payload,
			header:  "t=abc,v1=",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := constructEventAt(tt.payload, tt.header, testSecret, now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSignature) {
					t.Errorf("constructEventAt() error = %v, want ErrInvalidSignature", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("constructEventAt() error = %v", err)
			}
			if event.ID != "evt_1" || event.Type != EventPaymentSucceeded {
				t.Errorf("event = %+v, want id evt_1 type %s", event, EventPaymentSucceeded)
			}
			if len(event.Data.Object) == 0 {
				t.Error("event.Data.Object is empty")
			}
		})
	}
}

func TestComputeSignatureDeterministic(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	a := ComputeSignature(1_700_000_000, payload, testSecret)
	b := ComputeSignature(1_700_000_000, payload, testSecret)
	if a != b {
		t.Errorf("signatures differ: %s vs %s", a, b)
	}
	if a == ComputeSignature(1_700_000_001, payload, testSecret) {
		t.Error("different timestamps produced identical signatures")
	}
	if len(a) != 64 {
		t.Errorf("signature length = %d, want 64 hex chars", len(a))
	}
}
