package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

const RazorpaySignatureHeader = "X-Razorpay-Signature"

type Razorpay struct {
	webhookSecret string
}

func NewRazorpay(webhookSecret string) *Razorpay {
	return &Razorpay{webhookSecret: webhookSecret}
}

func (r *Razorpay) Gateway() string {
	return models.GatewayRazorpay
}

// Verify checks the hex HMAC-SHA256 of the raw body.
func (r *Razorpay) Verify(payload []byte, headers http.Header) error {
	signature := strings.TrimSpace(headers.Get(RazorpaySignatureHeader))
	if signature == "" || r.webhookSecret == "" {
		return apperror.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(r.webhookSecret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return apperror.ErrInvalidSignature
	}
	return nil
}

type razorpayEntity struct {
	ID    string            `json:"id"`
	Notes map[string]string `json:"notes"`
}

type razorpayEvent struct {
	ID      string `json:"id"`
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity razorpayEntity `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (r *Razorpay) Parse(payload []byte) (*Event, error) {
	var raw razorpayEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, apperror.ErrInvalidPayload
	}

	event := &Event{ID: raw.ID, Type: raw.Event}
	switch raw.Event {
	case "payment.captured", "order.paid":
		event.Kind = EventCompleted
	case "payment.failed":
		event.Kind = EventFailed
	default:
		return event, nil
	}

	// order.paid carries notes on the order, payment events on the payment.
	event.Reference = raw.Payload.Payment.Entity.Notes["reference"]
	if event.Reference == "" {
		event.Reference = raw.Payload.Order.Entity.Notes["reference"]
	}
	if event.Reference == "" {
		return nil, apperror.ErrInvalidPayload
	}
	return event, nil
}
