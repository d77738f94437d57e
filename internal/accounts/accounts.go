package accounts

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/invest-api/internal/auth"
	"github.com/ksred/invest-api/internal/brokerage"
	"github.com/ksred/invest-api/internal/types"
	"github.com/ksred/invest-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrAccountNotFound covers both a missing account and an account owned by
// a different user; callers cannot tell the two apart.
var ErrAccountNotFound = errors.New("account not found")

// Wrapper types accepted on account creation.
var validWrapperTypes = map[string]bool{
	"GIA": true,
	"ISA": true,
}

// Service is the account registry: it opens wrapper accounts at the
// brokerage and resolves internal account ids to owned records.
type Service struct {
	db      *Database
	gateway brokerage.Gateway
	firmID  string
}

func NewService(gormDB *gorm.DB, gateway brokerage.Gateway, firmID string) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		gateway: gateway,
		firmID:  firmID,
	}
}

// CreateAccount opens the external brokerage account first, then persists
// the internal mapping.
func (s *Service) CreateAccount(ctx context.Context, userID, currency, wrapperType string) (*types.Account, error) {
	if !validWrapperTypes[wrapperType] {
		return nil, errors.New("invalid wrapper type")
	}

	brokerageAccountID, err := s.gateway.CreateAccount(ctx, brokerage.CreateAccountRequest{
		FirmID:      s.firmID,
		ClientID:    userID,
		Currency:    currency,
		WrapperType: wrapperType,
	})
	if err != nil {
		return nil, err
	}

	account := &types.Account{
		AccountID:          "ACC-" + uuid.New().String(),
		UserID:             userID,
		BrokerageAccountID: brokerageAccountID,
		Currency:           currency,
		WrapperType:        wrapperType,
		Status:             types.AccountStatusActive,
	}
	if err := s.db.CreateAccount(account); err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", account.AccountID).
		Str("user_id", userID).
		Str("wrapper_type", wrapperType).
		Msg("wrapper account created")

	return account, nil
}

// ResolveOwnedAccount returns the account only when it exists and belongs
// to userID, otherwise ErrAccountNotFound.
func (s *Service) ResolveOwnedAccount(userID, accountID string) (*types.Account, error) {
	account, err := s.db.GetAccountByIDAndUserID(accountID, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return account, nil
}

// ListActiveAccounts returns every active account; used by the
// reconciliation processor.
func (s *Service) ListActiveAccounts() ([]types.Account, error) {
	return s.db.ListAccountsByStatus(types.AccountStatusActive)
}

// GinHandlers contains HTTP handlers for account endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{service: service}
}

type createAccountRequest struct {
	Currency    string `json:"currency" binding:"required"`
	WrapperType string `json:"wrapper_type" binding:"required"`
}

// CreateAccountHandler handles POST requests to open a wrapper account
func (h *GinHandlers) CreateAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserIDFromContext(c)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		var req createAccountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		account, err := h.service.CreateAccount(c.Request.Context(), userID, req.Currency, req.WrapperType)
		if err != nil {
			response.Classified(c, err)
			return
		}

		response.Success(c, account)
	}
}

// GetAccountHandler handles GET requests for a single owned account
func (h *GinHandlers) GetAccountHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserIDFromContext(c)
		if userID == "" {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		account, err := h.service.ResolveOwnedAccount(userID, c.Param("account_id"))
		if errors.Is(err, ErrAccountNotFound) {
			response.NotFound(c, "Account not found")
			return
		}
		if err != nil {
			response.Classified(c, err)
			return
		}

		response.Success(c, account)
	}
}
