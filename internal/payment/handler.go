package payment

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	errors "github.com/frahmantamala/mollie-checkout/internal"
	cartpkg "github.com/frahmantamala/mollie-checkout/internal/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/cart"
	"github.com/frahmantamala/mollie-checkout/internal/core/datamodel/intent"
	"github.com/frahmantamala/mollie-checkout/internal/transport"
)

const maxBodyBytes = 1 << 20

type AdapterAPI interface {
	Driver() string
	CreateIntent(ctx context.Context, c *cart.Cart, meta map[string]string, amount *int64) (intent.Intent, error)
	FetchIntent(ctx context.Context, paymentID string) (intent.Intent, bool, error)
	HandleWebhook(ctx context.Context, paymentID string) (WebhookOutcome, error)
}

type CartReader interface {
	GetByID(ctx context.Context, id int64) (*cart.Cart, error)
}

type Handler struct {
	*transport.BaseHandler
	Adapter  AdapterAPI
	Carts    CartReader
	Contract *ContractMonitor
	Logger   *slog.Logger
}

func NewHandler(adapter AdapterAPI, carts CartReader, contract *ContractMonitor, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Adapter:     adapter,
		Carts:       carts,
		Contract:    contract,
		Logger:      logger,
	}
}

// HandleWebhook handles POST /api/v1/payments/{driver}/webhook
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if driver := chi.URLParam(r, "driver"); driver != h.Adapter.Driver() {
		h.WriteErrorResponse(w, http.StatusNotFound, "Unknown payment driver")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.WriteErrorResponse(w, http.StatusBadRequest, "Malformed webhook body")
		return
	}

	outcome, err := h.Adapter.HandleWebhook(r.Context(), r.FormValue("id"))
	if err != nil {
		h.Logger.Error("HandleWebhook: processing failed", "error", err)
		if errors.HasCode(err, errors.ErrCodeGatewayError) {
			h.WriteErrorResponse(w, http.StatusBadGateway, "Payment gateway unavailable")
			return
		}
		h.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to process webhook")
		return
	}

	h.WriteJSON(w, outcome.StatusCode, outcome.Body())
}

// CreateIntent handles POST /api/v1/carts/{cartID}/payment-intents
func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	cartID, err := strconv.ParseInt(chi.URLParam(r, "cartID"), 10, 64)
	if err != nil || cartID <= 0 {
		h.HandleError(w, errors.NewValidationError("invalid cart id", errors.ErrCodeInvalidCartID))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.HandleError(w, errors.NewValidationError("unable to read request body", errors.ErrCodeValidationFailed))
		return
	}

	if appErr := h.Contract.Validate(body); appErr != nil {
		h.Logger.Warn("CreateIntent: contract violation", "cart_id", cartID, "error", appErr.GetDetailedMessage())
		h.HandleError(w, appErr)
		return
	}

	var req CreateIntentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	c, err := h.Carts.GetByID(r.Context(), cartID)
	if err != nil {
		if stderrors.Is(err, cartpkg.ErrNotFound) {
			h.HandleError(w, errors.ErrCartNotFound)
			return
		}
		h.HandleError(w, errors.NewInternalError("failed to load cart", err))
		return
	}

	in, err := h.Adapter.CreateIntent(r.Context(), c, req.Meta, req.Amount)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, NewIntentResponse(h.Adapter.Driver(), in))
}

// GetIntent handles GET /api/v1/payment-intents/{paymentID}
func (h *Handler) GetIntent(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")

	in, found, err := h.Adapter.FetchIntent(r.Context(), paymentID)
	if err != nil {
		h.HandleError(w, err)
		return
	}
	if !found {
		h.HandleError(w, errors.ErrPaymentNotFound)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewIntentResponse(h.Adapter.Driver(), in))
}
