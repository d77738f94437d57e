package reconciliation

import (
	"context"
	"time"

	"github.com/ksred/invest-api/internal/brokerage"
	"github.com/ksred/invest-api/internal/types"
	"github.com/rs/zerolog/log"
)

// AccountSource lists the accounts worth reconciling.
type AccountSource interface {
	ListActiveAccounts() ([]types.Account, error)
}

// PositionSource reads the locally accumulated positions.
type PositionSource interface {
	ListPositions(accountID string) ([]types.Position, error)
}

// Processor periodically compares local positions against the brokerage's
// view and logs any drift. It is read-only: the ledger is only ever mutated
// by the order saga.
type Processor struct {
	accounts AccountSource
	ledger   PositionSource
	gateway  brokerage.Gateway
	interval time.Duration
}

func NewProcessor(accounts AccountSource, ledger PositionSource, gateway brokerage.Gateway, interval time.Duration) *Processor {
	return &Processor{
		accounts: accounts,
		ledger:   ledger,
		gateway:  gateway,
		interval: interval,
	}
}

// Start begins the reconciliation loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "reconciliation_processor").Logger()
	logger.Info().Dur("interval", p.interval).Msg("starting reconciliation processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down reconciliation processor")
			return
		case <-ticker.C:
			if err := p.reconcile(ctx); err != nil {
				logger.Error().Err(err).Msg("reconciliation run failed")
			}
		}
	}
}

func (p *Processor) reconcile(ctx context.Context) error {
	logger := log.With().Str("component", "reconciliation_processor").Logger()

	accounts, err := p.accounts.ListActiveAccounts()
	if err != nil {
		return err
	}

	logger.Debug().Int("account_count", len(accounts)).Msg("reconciling accounts")

	for _, account := range accounts {
		summary, err := p.gateway.GetAccountSummary(ctx, account.BrokerageAccountID)
		if err != nil {
			// A single unreachable account should not stop the sweep.
			logger.Warn().
				Err(err).
				Str("account_id", account.AccountID).
				Msg("could not fetch brokerage summary")
			continue
		}

		local, err := p.ledger.ListPositions(account.AccountID)
		if err != nil {
			return err
		}

		remote := make(map[string]brokerage.Position, len(summary.Positions))
		for _, pos := range summary.Positions {
			remote[pos.InstrumentID] = pos
		}

		for _, pos := range local {
			brokeragePos, ok := remote[pos.InstrumentID]
			if !ok {
				logger.Warn().
					Str("account_id", account.AccountID).
					Str("instrument_id", pos.InstrumentID).
					Int64("local_quantity", pos.Quantity).
					Msg("position held locally but unknown to brokerage")
				continue
			}
			if brokeragePos.Quantity != pos.Quantity {
				logger.Warn().
					Str("account_id", account.AccountID).
					Str("instrument_id", pos.InstrumentID).
					Int64("local_quantity", pos.Quantity).
					Int64("brokerage_quantity", brokeragePos.Quantity).
					Msg("position quantity drift detected")
			}
			delete(remote, pos.InstrumentID)
		}

		for instrumentID, pos := range remote {
			if pos.Quantity == 0 {
				continue
			}
			logger.Warn().
				Str("account_id", account.AccountID).
				Str("instrument_id", instrumentID).
				Int64("brokerage_quantity", pos.Quantity).
				Msg("position held at brokerage but missing locally")
		}
	}

	return nil
}
