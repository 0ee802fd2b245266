package handlers

import (
	"errors"
	"net/http"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/service"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	*Responder
	s      service.BillingService
	ledger service.CreditLedger
}

func NewBillingHandler(r *Responder, service service.BillingService, ledger service.CreditLedger) *BillingHandler {
	return &BillingHandler{Responder: r, s: service, ledger: ledger}
}

// Webhook acknowledges every delivery it has dealt with, including duplicates
// and events we do not act on, so the gateway stops retrying.
func (h *BillingHandler) Webhook(c *fiber.Ctx) error {
	headers := make(http.Header)
	c.Request().Header.VisitAll(func(k, v []byte) {
		headers.Add(string(k), string(v))
	})

	// The body is copied because fasthttp reuses the buffer.
	payload := append([]byte(nil), c.Body()...)

	res, err := h.s.Confirm(c.UserContext(), c.Params("gateway"), payload, headers)
	switch {
	case err == nil:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok", "event": res.EventType})
	case errors.Is(err, apperror.ErrNotFound):
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ignored"})
	case errors.Is(err, apperror.ErrInvalidSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	default:
		return h.Error(c, err)
	}
}

func (h *BillingHandler) ListPlans(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(service.Plans(c.Query("currency")))
}

func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	var req transfer.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return h.Error(c, apperror.ValidationFailed("body", "Unable to parse request body"))
	}
	if err := validate.Struct(req); err != nil {
		return h.Error(c, err)
	}

	txn, err := h.s.InitiatePurchase(c.UserContext(), GetUserID(c), req.PlanID, req.Gateway)
	if err != nil {
		return h.Error(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(transfer.CheckoutResponse{
		Reference: txn.GatewayTxnID,
		Gateway:   txn.Gateway,
		PlanID:    txn.PlanID,
		Amount:    txn.Amount,
		Currency:  txn.Currency,
		Credits:   txn.CreditsPurchased,
	})
}

func (h *BillingHandler) ListTransactions(c *fiber.Ctx) error {
	txns, err := h.s.ListTransactions(c.UserContext(), GetUserID(c))
	if err != nil {
		return h.Error(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(txns)
}

func (h *BillingHandler) GetCredits(c *fiber.Ctx) error {
	balance, err := h.ledger.GetBalance(c.UserContext(), GetUserID(c))
	if err != nil {
		return h.Error(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(transfer.BalanceResponse{Balance: balance})
}
