// Package ingest implements the chain log ingester and checkpointer: a
// state machine that mirrors Hypermap registry events into the registry
// store, repairing out-of-order Mint/Note/Fact delivery with a pending-log
// queue and resuming from a persisted checkpoint on the next run after a
// restart. A dropped live subscription ends the run; it does not re-enter
// catch-up in place.
package ingest

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// LogSource is the subset of ethclient.Client the ingester depends on. It
// is an interface so tests can supply a fake without a live RPC endpoint,
// following the same seam geth's own subscription helpers use.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// filterQuery builds the FilterQuery for the registry contract across an
// inclusive block range.
func filterQuery(contract common.Address, from, to uint64) ethereum.FilterQuery {
	return ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
	}
}
