package brokerage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ksred/invest-api/pkg/external"
	"github.com/rs/zerolog/log"
)

const providerName = "brokerage"

// Client is the HTTP implementation of Gateway. Every call carries its own
// timeout and runs through the retry/classification layer.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	retry      external.Retry
}

// NewClient creates a brokerage client. timeout applies per request.
func NewClient(baseURL, apiKey string, timeout time.Duration, retry external.Retry) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
	}
}

// providerError is the brokerage's error body shape.
type providerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// call performs one JSON round trip and decodes a 2xx response into out.
// Non-2xx responses and transport failures come back classified.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return external.Classify(providerName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return external.Classify(providerName, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var pe providerError
		_ = json.Unmarshal(respBody, &pe)
		return external.ClassifyStatus(providerName, resp.StatusCode, pe.Code, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) CreateAccount(ctx context.Context, req CreateAccountRequest) (string, error) {
	var resp struct {
		AccountID string `json:"account_id"`
	}
	err := c.retry.Do(ctx, providerName, "create-account", func() error {
		return c.call(ctx, http.MethodPost, "/accounts", req, &resp)
	})
	if err != nil {
		return "", err
	}

	log.Debug().Str("brokerage_account_id", resp.AccountID).Msg("brokerage account created")
	return resp.AccountID, nil
}

func (c *Client) CreateTransactionGroup(ctx context.Context, accountID string, instructions []TransactionInstruction) (*TransactionGroup, error) {
	payload := struct {
		AccountID    string                   `json:"account_id"`
		Transactions []TransactionInstruction `json:"transactions"`
	}{AccountID: accountID, Transactions: instructions}

	var group TransactionGroup
	err := c.retry.Do(ctx, providerName, "create-transaction-group", func() error {
		return c.call(ctx, http.MethodPost, "/transaction-groups", payload, &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) CompleteTransaction(ctx context.Context, transactionRef string, req CompleteTransactionRequest) (*TransactionResult, error) {
	var result TransactionResult
	err := c.retry.Do(ctx, providerName, "complete-transaction", func() error {
		return c.call(ctx, http.MethodPost, "/transactions/"+transactionRef+"/complete", req, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) GetAccountSummary(ctx context.Context, accountID string) (*AccountSummary, error) {
	var summary AccountSummary
	err := c.retry.Do(ctx, providerName, "get-account-summary", func() error {
		return c.call(ctx, http.MethodGet, "/accounts/"+accountID+"/summary", nil, &summary)
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) GetPosition(ctx context.Context, accountID, instrumentID string) (*Position, error) {
	var position Position
	err := c.retry.Do(ctx, providerName, "get-position", func() error {
		return c.call(ctx, http.MethodGet, "/accounts/"+accountID+"/positions/"+instrumentID, nil, &position)
	})
	if err != nil {
		return nil, err
	}
	return &position, nil
}
