package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ksred/invest-api/internal/auth"
	"github.com/ksred/invest-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minOrders     = 15
	maxOrders     = 150
	numWorkers    = 5
	serverAddress = "http://localhost:8080"

	// Order amounts in minor units (pence)
	minAmount = 500
	maxAmount = 50000
)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the investment API
type simulationClient struct {
	baseURL   string
	authToken string
	client    *http.Client
	stats     map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with the API and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":      {name: "Authentication"},
			"account":   {name: "Create Account"},
			"order":     {name: "Place Order"},
			"replay":    {name: "Replay Order"},
			"positions": {name: "Get Positions"},
		},
	}

	token, err := sc.authenticate()
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    auth.TestAPIKey,
		"api_secret": auth.TestAPISecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// doJSON sends an authenticated request and decodes the standard envelope
func (sc *simulationClient) doJSON(method, path string, payload interface{}, idempotencyKey string, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, sc.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", sc.authToken))
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// createAccount opens a wrapper account for the simulated user
func (sc *simulationClient) createAccount() (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["account"].addDuration(time.Since(start))
	}()

	payload := map[string]string{
		"currency":     "GBP",
		"wrapper_type": "GIA",
	}

	var result struct {
		Data types.Account `json:"data"`
	}
	if err := sc.doJSON("POST", "/api/v1/accounts", payload, "", &result); err != nil {
		sc.stats["account"].failures++
		return "", err
	}
	if result.Data.AccountID == "" {
		return "", fmt.Errorf("no account ID in response")
	}
	return result.Data.AccountID, nil
}

// placeOrder submits a buy order; statsKey selects the bucket so replays
// are tracked separately from first placements
func (sc *simulationClient) placeOrder(accountID string, amount int64, idempotencyKey, statsKey string) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats[statsKey].addDuration(time.Since(start))
	}()

	payload := map[string]int64{"amount": amount}

	var result struct {
		Data types.Order `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/orders", accountID)
	if err := sc.doJSON("POST", path, payload, idempotencyKey, &result); err != nil {
		sc.stats[statsKey].failures++
		return nil, err
	}
	if result.Data.OrderID == "" {
		return nil, fmt.Errorf("no order ID in response")
	}
	return &result.Data, nil
}

// getPositions fetches the accumulated positions for an account
func (sc *simulationClient) getPositions(accountID string) ([]types.PositionResponse, error) {
	start := time.Now()
	defer func() {
		sc.stats["positions"].addDuration(time.Since(start))
	}()

	var result struct {
		Data []types.PositionResponse `json:"data"`
	}
	path := fmt.Sprintf("/api/v1/accounts/%s/positions", accountID)
	if err := sc.doJSON("GET", path, nil, "", &result); err != nil {
		sc.stats["positions"].failures++
		return nil, err
	}
	return result.Data, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

type orderOutcome struct {
	order *types.Order
	err   error
}

// main runs the investment simulation against a locally running server.
// It opens one account and drives concurrent buy orders through it,
// replaying roughly one in five orders with its original idempotency key.
func main() {
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	accountID, err := simClient.createAccount()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create account")
	}
	log.Info().Str("account_id", accountID).Msg("Account created")

	targetOrders := rand.Intn(maxOrders-minOrders) + minOrders
	log.Info().Int("target_orders", targetOrders).Msg("Starting simulation")

	outcomes := make(chan orderOutcome, targetOrders*2)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < targetOrders/numWorkers; j++ {
				amount := int64(rand.Intn(maxAmount-minAmount)) + minAmount
				key := uuid.New().String()

				order, err := simClient.placeOrder(accountID, amount, key, "order")
				outcomes <- orderOutcome{order: order, err: err}
				if err != nil {
					log.Warn().Err(err).Int("worker", workerID).Msg("order failed")
					continue
				}

				// Replay a subset with the same key to exercise idempotency
				if j%5 == 0 {
					replayed, err := simClient.placeOrder(accountID, amount, key, "replay")
					if err == nil && replayed.OrderID != order.OrderID {
						log.Error().
							Str("original", order.OrderID).
							Str("replayed", replayed.OrderID).
							Msg("idempotency violation: replay returned a different order")
					}
				}
			}
		}(i)
	}

	wg.Wait()
	close(outcomes)

	var placed, failed int
	var totalInvested, totalExecuted int64
	for outcome := range outcomes {
		if outcome.err != nil {
			failed++
			continue
		}
		placed++
		totalInvested += outcome.order.RequestedAmount
		totalExecuted += outcome.order.ExecutedAmount
	}

	positions, err := simClient.getPositions(accountID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch positions")
	}

	log.Info().
		Int("orders_placed", placed).
		Int("orders_failed", failed).
		Int64("total_requested", totalInvested).
		Int64("total_executed", totalExecuted).
		Msg("Simulation complete")

	for _, pos := range positions {
		log.Info().
			Str("instrument_id", pos.InstrumentID).
			Int64("quantity", pos.Quantity).
			Str("book_value", pos.BookValueText).
			Float64("growth_percent", pos.GrowthPercent).
			Msg("Final position")
	}

	simClient.printPerformanceStats()
}
