package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/hyperware-ai/hypergrid-operator/internal/chaincodec"
	"github.com/hyperware-ai/hypergrid-operator/internal/chainstore"
)

// Default tuning values from the ingestion strategy.
const (
	defaultHistoricalChunk = uint64(5000)
	maxHistoricalRetries   = 8
	defaultReorgDepth      = uint64(12)
	defaultCheckpointEvery = 30 * time.Second
)

// Ingester mirrors registry contract events into the registry store,
// keyed by topic-0, with ordering repair via a pending-log queue.
type Ingester struct {
	store       *chainstore.Store
	client      LogSource
	contract    common.Address
	categoryTop common.Hash
	logger      *logrus.Logger
	pending     *pendingQueue
	reorgDepth  uint64
	firstBlock  uint64
	processed   uint64
}

// New constructs an Ingester against the given registry contract address.
// categoryTop is the namehash every category is minted directly under (the
// publisher entry that owns the Hypergrid provider registry facts); a Mint
// log whose parent hash equals categoryTop creates a category, any other
// Mint creates a provider under an already-known category. firstBlock is
// the contract's deployment block, used as the lower bound for historical
// catch-up and the checkpoint floor.
func New(store *chainstore.Store, client LogSource, contract common.Address, categoryTop common.Hash, firstBlock uint64, logger *logrus.Logger) *Ingester {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Ingester{
		store:       store,
		client:      client,
		contract:    contract,
		categoryTop: categoryTop,
		logger:      logger,
		pending:     newPendingQueue(),
		reorgDepth:  defaultReorgDepth,
		firstBlock:  firstBlock,
	}
}

// PendingCount reports how many logs are currently deferred awaiting a
// parent hash, for observability.
func (ig *Ingester) PendingCount() int { return ig.pending.Len() }

// ApplyLog decodes and writes a single log, then drains any pending
// entries that were waiting on the hash this log just created. Ordering
// repair requires the drain to happen before the caller processes the
// next inbound log.
func (ig *Ingester) ApplyLog(ctx context.Context, log types.Log) error {
	created, waitOn, err := ig.tryApply(ctx, log)
	if err != nil {
		return err
	}
	if waitOn != "" {
		ig.pending.enqueue(waitOn, log)
	}
	if created != "" {
		ig.drain(ctx, created)
	}
	ig.processed = log.BlockNumber
	return nil
}

// tryApply attempts to write one log to the store. It returns the hash
// newly created by this log (so dependents can be drained), or waitOn
// set to the hash this log is blocked on (so the caller can enqueue it).
// Both are empty when the log was handled and nothing further follows.
func (ig *Ingester) tryApply(ctx context.Context, log types.Log) (created, waitOn string, err error) {
	kind := chaincodec.KindOf(log)
	switch kind {
	case chaincodec.MintEvent:
		m, derr := chaincodec.DecodeMint(log)
		if derr != nil {
			ig.logger.WithError(derr).Warn("ingest: dropping undecodable mint log")
			return "", "", nil
		}
		parent := m.ParentHash.Hex()
		child := m.ChildHash.Hex()

		if m.ParentHash == ig.categoryTop {
			if werr := ig.store.InsertCategory(ctx, child, m.Label); werr != nil {
				return "", "", fmt.Errorf("ingest: insert category: %w", werr)
			}
			return child, "", nil
		}

		werr := ig.store.InsertProvider(ctx, parent, child, m.Label)
		if errors.Is(werr, chainstore.ErrUnknownParent) {
			return "", parent, nil
		}
		if werr != nil {
			return "", "", fmt.Errorf("ingest: insert provider: %w", werr)
		}
		return child, "", nil

	case chaincodec.NoteEvent, chaincodec.FactEvent:
		n, derr := chaincodec.DecodeNote(log)
		if derr != nil {
			ig.logger.WithError(derr).Warn("ingest: dropping undecodable note log")
			return "", "", nil
		}
		werr := ig.store.ApplyNote(ctx, n.ParentHash.Hex(), n.Key, string(n.Value))
		if errors.Is(werr, chainstore.ErrUnknownProvider) {
			return "", n.ParentHash.Hex(), nil
		}
		if errors.Is(werr, chainstore.ErrUnknownNoteKey) {
			ig.logger.WithField("key", n.Key).Debug("ingest: ignoring note with unrecognized key")
			return "", "", nil
		}
		if werr != nil {
			return "", "", fmt.Errorf("ingest: apply note: %w", werr)
		}
		return "", "", nil

	default:
		return "", "", nil
	}
}

// drain retries every log waiting on hash, immediately and synchronously,
// per the ordering guarantee that pending-log drain precedes the next
// inbound message. Survivors are requeued with an incremented attempt
// counter; entries exceeding maxPendingAttempts are dropped as a
// permanent index gap.
func (ig *Ingester) drain(ctx context.Context, hash string) {
	for _, e := range ig.pending.take(hash) {
		created, waitOn, err := ig.tryApply(ctx, e.log)
		if err != nil {
			ig.logger.WithError(err).Error("ingest: pending log retry failed")
			ig.pending.requeue(hash, e)
			continue
		}
		if waitOn != "" {
			ig.pending.requeue(waitOn, e)
			continue
		}
		if created != "" {
			ig.drain(ctx, created)
		}
	}
}

// Checkpoint persists last_checkpoint_block = max(processed - reorgDepth,
// firstBlock). It is called on each tick of the checkpoint timer
// (checkpoint_interval_seconds, 30s by default); callers must ensure it
// never overlaps a partially-committed batch.
func (ig *Ingester) Checkpoint(ctx context.Context) error {
	floor := ig.firstBlock
	target := floor
	if ig.processed > ig.reorgDepth && ig.processed-ig.reorgDepth > floor {
		target = ig.processed - ig.reorgDepth
	}
	if err := ig.store.SetCheckpoint(ctx, target); err != nil {
		return fmt.Errorf("ingest: checkpoint: %w", err)
	}
	return nil
}
