package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event types delivered by the gateway that the reconciliation engine acts on.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded   = "charge.refunded"
)

// SignatureHeader is the HTTP header carrying the webhook signature.
const SignatureHeader = "Gateway-Signature"

// DefaultTolerance bounds the accepted age of a signed webhook payload.
const DefaultTolerance = 5 * time.Minute

// ErrInvalidSignature is returned when a webhook payload fails signature
// verification. Callers must treat it as an authentication failure and
// reject the delivery without processing it.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// Event is a verified gateway event envelope. Data.Object holds the raw
// event-specific payload; unmarshal it based on Type.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// PaymentIntentPayload is Data.Object for payment_intent.* events.
type PaymentIntentPayload struct {
	ID           string            `json:"id"`
	LatestCharge string            `json:"latest_charge"`
	Metadata     map[string]string `json:"metadata"`
}

// ChargePayload is Data.Object for charge.* events.
type ChargePayload struct {
	ID            string `json:"id"`
	PaymentIntent string `json:"payment_intent"`
}

// ComputeSignature returns the hex HMAC-SHA256 of "<timestamp>.<payload>"
// under the shared webhook secret. Exposed for tests and for signing
// outbound test deliveries.
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// ConstructEvent verifies the signature header against the raw payload and
// the shared secret, then decodes the event envelope. The header format is
// "t=<unix timestamp>,v1=<hex hmac>". Any parse, verification or timestamp
// tolerance failure yields ErrInvalidSignature.
func ConstructEvent(payload []byte, sigHeader, secret string) (Event, error) {
	return constructEventAt(payload, sigHeader, secret, time.Now())
}

func constructEventAt(payload []byte, sigHeader, secret string, now time.Time) (Event, error) {
	var event Event

	timestamp, signature, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return event, err
	}

	age := now.Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > DefaultTolerance {
		return event, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	expected := ComputeSignature(timestamp, payload, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return event, ErrInvalidSignature
	}

	if err := json.Unmarshal(payload, &event); err != nil {
		return event, fmt.Errorf("decoding webhook event: %w", err)
	}
	return event, nil
}

func parseSignatureHeader(header string) (timestamp int64, signature string, err error) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp, err = strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
			}
		case "v1":
			signature = value
		}
	}
	if timestamp == 0 || signature == "" {
		return 0, "", fmt.Errorf("%w: missing signature header fields", ErrInvalidSignature)
	}
	return timestamp, signature, nil
}
