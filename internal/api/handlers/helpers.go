package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aydiegithub/ai-agent-for-social-content/internal/apperror"
	"github.com/aydiegithub/ai-agent-for-social-content/internal/gateway"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func GetUserID(c *fiber.Ctx) int64 {
	s, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(s, 10, 64)
	return userID
}

// Responder turns service errors into HTTP responses.
type Responder struct {
	supportEmail string
	log          *zap.Logger
}

func NewResponder(supportEmail string, log *zap.Logger) *Responder {
	return &Responder{supportEmail: supportEmail, log: log.Named("http")}
}

func (r *Responder) Error(c *fiber.Ctx, err error) error {
	status, body := r.describe(err)
	if status >= fiber.StatusInternalServerError {
		r.log.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(body)
}

func (r *Responder) describe(err error) (int, fiber.Map) {
	var (
		appErr  *apperror.AppError
		genErr  *apperror.GenerationFailed
		postErr *apperror.PostFailed
		verrs   validator.ValidationErrors
	)

	switch {
	case errors.As(err, &verrs):
		return fiber.StatusBadRequest, fiber.Map{"error": validationMessage(verrs[0]), "field": verrs[0].Field()}
	case errors.As(err, &genErr):
		return fiber.StatusInternalServerError, fiber.Map{"error": r.externalMessage(genErr.Kind), "kind": genErr.Kind}
	case errors.As(err, &postErr):
		return fiber.StatusInternalServerError, fiber.Map{
			"error":    r.externalMessage(postErr.Kind),
			"kind":     postErr.Kind,
			"refunded": postErr.Refunded,
		}
	}

	status := statusOf(err)
	body := fiber.Map{"error": "Something went wrong. " + r.supportHint()}
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Field != "" {
			body["field"] = appErr.Field
		}
	} else if status != fiber.StatusInternalServerError {
		body["error"] = err.Error()
	}
	if status == fiber.StatusAccepted {
		body = fiber.Map{"message": body["error"]}
	}
	return status, body
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInsufficientCredits):
		return fiber.StatusPaymentRequired
	case errors.Is(err, apperror.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperror.ErrValidation),
		errors.Is(err, apperror.ErrUnsupportedPlatform),
		errors.Is(err, apperror.ErrInvalidSignature),
		errors.Is(err, apperror.ErrInvalidPayload):
		return fiber.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperror.ErrAlreadyPosted),
		errors.Is(err, apperror.ErrPersistenceConflict):
		return fiber.StatusConflict
	case errors.Is(err, apperror.ErrPersistenceQueued):
		return fiber.StatusAccepted
	default:
		return fiber.StatusInternalServerError
	}
}

func (r *Responder) externalMessage(kind gateway.Kind) string {
	switch kind {
	case gateway.RateLimited:
		return "The provider is busy right now. Please try again in a few minutes."
	case gateway.ContentBlocked:
		return "The request was blocked by the provider's content policy. Please rephrase and try again."
	case gateway.AuthExpired:
		return "Your account connection has expired. Please reconnect it and try again."
	case gateway.TransientNetworkError:
		return "The provider did not respond in time. Please try again."
	default:
		return "Something went wrong while contacting the provider. " + r.supportHint()
	}
}

func (r *Responder) supportHint() string {
	return fmt.Sprintf("If this keeps happening, contact %s.", r.supportEmail)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
