package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/models"
)

const (
	StripeSignatureHeader = "Stripe-Signature"

	DefaultStripeTolerance = 5 * time.Minute
)

type Stripe struct {
	webhookSecret string
	tolerance     time.Duration
	now           func() time.Time
}

func NewStripe(webhookSecret string) *Stripe {
	return &Stripe{
		webhookSecret: webhookSecret,
		tolerance:     DefaultStripeTolerance,
		now:           time.Now,
	}
}

func (s *Stripe) Gateway() string {
	return models.GatewayStripe
}

// Verify checks any v1 signature over "<t>.<payload>" and rejects
// timestamps outside the replay tolerance.
func (s *Stripe) Verify(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get(StripeSignatureHeader))
	if sigHeader == "" || s.webhookSecret == "" {
		return apperror.ErrInvalidSignature
	}

	ts, signatures, ok := parseStripeSignature(sigHeader)
	if !ok {
		return apperror.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", ts, payload)))
	expected := hex.EncodeToString(mac.Sum(nil))

	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return apperror.ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return apperror.ErrInvalidSignature
	}
	if age := s.now().Sub(time.Unix(unix, 0)); age > s.tolerance || age < -s.tolerance {
		return apperror.ErrInvalidSignature
	}
	return nil
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentStatus     string `json:"payment_status"`
		} `json:"object"`
	} `json:"data"`
}

func (s *Stripe) Parse(payload []byte) (*Event, error) {
	var raw stripeEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, apperror.ErrInvalidPayload
	}

	event := &Event{ID: raw.ID, Type: raw.Type}
	switch raw.Type {
	case "checkout.session.completed":
		// Delayed methods complete the session while the charge is still
		// unpaid; async_payment_succeeded follows once it settles.
		switch raw.Data.Object.PaymentStatus {
		case "paid", "no_payment_required":
			event.Kind = EventCompleted
		default:
			return event, nil
		}
	case "checkout.session.async_payment_succeeded":
		event.Kind = EventCompleted
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		event.Kind = EventFailed
	default:
		return event, nil
	}

	event.Reference = strings.TrimSpace(raw.Data.Object.ClientReferenceID)
	if event.Reference == "" {
		return nil, apperror.ErrInvalidPayload
	}
	return event, nil
}

func parseStripeSignature(header string) (string, []string, bool) {
	var ts string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			ts = strings.TrimSpace(value)
		case "v1":
			signatures = append(signatures, strings.TrimSpace(value))
		}
	}
	return ts, signatures, ts != "" && len(signatures) > 0
}
