// Package ledger is the spending ledger: it ingests USDC Transfer
// events touching the operator TBA via bisect backfill and tail scan,
// rolls per-client totals, and enforces per-call and per-client spending
// caps before a payment attempt is allowed to proceed.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
)

// LimitExceededError is returned by CheckLimits; Limit and Spent describe
// which bound was hit.
type LimitExceededError struct {
	Limit string
	Spent string
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("ledger: limit exceeded (limit=%s spent=%s)", e.Limit, e.Spent)
}

// Limits are the per-client caps consulted by CheckLimits. A nil field means
// unlimited, matching the wallet's `max_per_call: None, max_total: None`
// convention for a freshly authorized client with no cap configured.
type Limits struct {
	MaxPerCall *decimal.Decimal
	MaxTotal   *decimal.Decimal
}

// Ledger tracks USDC activity on the operator TBA and enforces spending
// limits against the registry store's usdc_events/client_totals tables.
type Ledger struct {
	store *chainstore.Store
}

// New builds a Ledger backed by store.
func New(store *chainstore.Store) *Ledger {
	return &Ledger{store: store}
}

// RecordTransfer upserts one observed USDC Transfer event. operatorTBA is
// used to classify direction: in if operatorTBA is the recipient, out if
// operatorTBA is the sender.
func (l *Ledger) RecordTransfer(ctx context.Context, operatorTBA, from, to common.Address, txHash string, logIndex uint, blockNumber uint64, amountUnits string) error {
	var direction chainstore.Direction
	var counterparty common.Address
	switch operatorTBA {
	case to:
		direction = chainstore.DirectionIn
		counterparty = from
	case from:
		direction = chainstore.DirectionOut
		counterparty = to
	default:
		return fmt.Errorf("ledger: transfer %s does not touch operator TBA", txHash)
	}
	return l.store.InsertUSDCEvent(ctx, chainstore.USDCEvent{
		TxHash:       txHash,
		LogIndex:     logIndex,
		BlockNumber:  blockNumber,
		Direction:    direction,
		Counterparty: counterparty.Hex(),
		AmountUnits:  amountUnits,
	})
}

// RollupClient adds amountToAdd, the amount of a newly confirmed payment,
// to the client's stored spent total and persists the result to
// client_totals; when dayBucket differs from the stored bucket the total
// restarts from amountToAdd. It works from the stored total alone and does
// not read the call ledger or usdc_events.
func (l *Ledger) RollupClient(ctx context.Context, clientID, amountToAdd, dayBucket string) (decimal.Decimal, error) {
	current, _, err := l.store.ClientTotals(ctx, clientID)
	if err != nil {
		return decimal.Zero, err
	}
	spent, err := decimal.NewFromString(current.Spent)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: parse stored spent: %w", err)
	}
	delta, err := decimal.NewFromString(amountToAdd)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: parse amount: %w", err)
	}
	total := spent.Add(delta)

	if current.DayBucket != dayBucket {
		// A new day bucket resets the rolling total, matching the
		// daily-reset client_limits_cache semantics.
		total = delta
	}

	if err := l.store.SetClientTotals(ctx, chainstore.ClientTotal{
		ClientID:  clientID,
		Spent:     total.String(),
		DayBucket: dayBucket,
	}); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CheckLimits rejects a payment amount that exceeds the per-call or
// per-client-total caps. It must run in the same logical step as the
// subsequent ledger append to avoid a check-then-act race across
// concurrent attempts for the same client; callers serialize per-client
// at a higher layer.
func (l *Ledger) CheckLimits(ctx context.Context, clientID string, amount decimal.Decimal, limits Limits, dayBucket string) error {
	if limits.MaxPerCall != nil && amount.GreaterThan(*limits.MaxPerCall) {
		return &LimitExceededError{Limit: limits.MaxPerCall.String(), Spent: amount.String()}
	}
	if limits.MaxTotal == nil {
		return nil
	}
	current, _, err := l.store.ClientTotals(ctx, clientID)
	if err != nil {
		return err
	}
	spent := decimal.Zero
	if current.DayBucket == dayBucket {
		spent, err = decimal.NewFromString(current.Spent)
		if err != nil {
			return fmt.Errorf("ledger: parse stored spent: %w", err)
		}
	}
	projected := spent.Add(amount)
	if projected.GreaterThan(*limits.MaxTotal) {
		return &LimitExceededError{Limit: limits.MaxTotal.String(), Spent: projected.String()}
	}
	return nil
}

// AsLimitExceeded unwraps err into a *LimitExceededError, if it is one.
func AsLimitExceeded(err error) (*LimitExceededError, bool) {
	var le *LimitExceededError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
