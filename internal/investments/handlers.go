package investments

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ksred/invest-api/internal/accounts"
	"github.com/ksred/invest-api/internal/auth"
	"github.com/ksred/invest-api/internal/types"
	"github.com/ksred/invest-api/pkg/response"
)

// GinHandlers contains HTTP handlers for investment endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type placeOrderRequest struct {
	// Amount is in minor currency units (pence).
	Amount int64 `json:"amount" binding:"required"`
}

// PlaceOrderHandler handles POST requests placing a buy order against an
// account. Requires a valid JWT and an Idempotency-Key header.
func (h *GinHandlers) PlaceOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader("Idempotency-Key")
		if idempotencyKey == "" {
			response.BadRequest(c, "Idempotency-Key header is required")
			return
		}

		userID := auth.UserIDFromContext(c)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		var req placeOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		order, err := h.service.PlaceOrder(c.Request.Context(), userID, c.Param("account_id"), req.Amount, idempotencyKey)
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrIdempotencyConflict):
			response.Conflict(c, "Idempotency key already in use")
		case errors.Is(err, accounts.ErrAccountNotFound):
			response.NotFound(c, "Account not found")
		case err != nil:
			response.Classified(c, err)
		default:
			response.Success(c, order)
		}
	}
}

// GetOrderHandler handles GET requests for a single order
func (h *GinHandlers) GetOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserIDFromContext(c)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		order, err := h.service.GetOrder(c.Param("order_id"), userID)
		if err != nil {
			response.Classified(c, err)
			return
		}
		if order == nil {
			response.NotFound(c, "Order not found")
			return
		}

		response.Success(c, order)
	}
}

// ListPositionsHandler handles GET requests for an account's positions
func (h *GinHandlers) ListPositionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserIDFromContext(c)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		positions, err := h.service.ListPositions(userID, c.Param("account_id"))
		if errors.Is(err, accounts.ErrAccountNotFound) {
			response.NotFound(c, "Account not found")
			return
		}
		if err != nil {
			response.Classified(c, err)
			return
		}

		out := make([]types.PositionResponse, 0, len(positions))
		for i := range positions {
			out = append(out, types.NewPositionResponse(&positions[i]))
		}
		response.Success(c, out)
	}
}

// GetAccountSummaryHandler handles GET requests for the brokerage-side
// account summary
func (h *GinHandlers) GetAccountSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserIDFromContext(c)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		summary, err := h.service.GetAccountSummary(c.Request.Context(), userID, c.Param("account_id"))
		if errors.Is(err, accounts.ErrAccountNotFound) {
			response.NotFound(c, "Account not found")
			return
		}
		if err != nil {
			response.Classified(c, err)
			return
		}

		response.Success(c, summary)
	}
}
