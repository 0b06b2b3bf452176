package ingest

import (
	"context"
	"fmt"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Catchup fetches every registry log from resumeFrom (raised to firstBlock
// when it is lower) to the current chain head in capped chunks, applying
// each in order. On an RPC failure it
// halves the chunk size and retries, up to maxHistoricalRetries times,
// before surfacing a fatal error.
func (ig *Ingester) Catchup(ctx context.Context, resumeFrom uint64) error {
	latest, err := ig.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("ingest: fetch latest block: %w", err)
	}

	chunk := defaultHistoricalChunk
	from := resumeFrom
	if from < ig.firstBlock {
		from = ig.firstBlock
	}
	for from <= latest {
		to := from + chunk - 1
		if to > latest {
			to = latest
		}

		logs, err := ig.fetchChunkWithBackoff(ctx, from, to, chunk)
		if err != nil {
			return fmt.Errorf("ingest: historical catch-up [%d,%d]: %w", from, to, err)
		}
		for _, log := range logs {
			if err := ig.ApplyLog(ctx, log); err != nil {
				return fmt.Errorf("ingest: apply historical log: %w", err)
			}
		}
		from = to + 1
	}
	return nil
}

// fetchChunkWithBackoff fetches [from,to], halving the effective chunk
// width and retrying on failure, up to maxHistoricalRetries attempts.
func (ig *Ingester) fetchChunkWithBackoff(ctx context.Context, from, to, chunk uint64) ([]types.Log, error) {
	var lastErr error
	width := to - from + 1
	for attempt := 0; attempt < maxHistoricalRetries; attempt++ {
		if width < 1 {
			width = 1
		}
		cappedTo := from + width - 1
		if cappedTo > to {
			cappedTo = to
		}
		logs, err := ig.client.FilterLogs(ctx, filterQuery(ig.contract, from, cappedTo))
		if err == nil {
			if cappedTo < to {
				// Partial chunk succeeded at a smaller width; fetch the
				// remainder at the same reduced width before returning.
				rest, err := ig.fetchChunkWithBackoff(ctx, cappedTo+1, to, width)
				if err != nil {
					return nil, err
				}
				return append(logs, rest...), nil
			}
			return logs, nil
		}
		lastErr = err
		ig.logger.WithError(err).WithField("attempt", attempt+1).Warn("ingest: historical fetch failed, backing off")
		width /= 2
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}
	return nil, fmt.Errorf("ingest: exhausted retries: %w", lastErr)
}

func backoffDelay(attempt int) time.Duration {
	d := time.Second << attempt
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// Subscribe opens a push subscription for new registry logs; the caller
// routes delivered logs through ApplyLog. Subscribe does not recover from
// a dropped subscription: the drop is reported on the subscription's error
// channel, `hypergrid ingest run` exits with an error on it, and the next
// run resumes historical catch-up from the last persisted checkpoint.
func (ig *Ingester) Subscribe(ctx context.Context) (ethereum.Subscription, chan types.Log, error) {
	logCh := make(chan types.Log, 256)
	sub, err := ig.client.SubscribeFilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{ig.contract},
	}, logCh)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: subscribe: %w", err)
	}
	return sub, logCh, nil
}
