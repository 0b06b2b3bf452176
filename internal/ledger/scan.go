package ledger

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// transferTopic0 is keccak256("Transfer(address,address,uint256)"),
// computed directly rather than depending on a full ERC-20 ABI JSON for
// one event signature.
var transferTopic0 = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

const usdcScanChunk = uint64(2000)

// LogSource is the subset of ethclient.Client the ledger scanner needs.
type LogSource interface {
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Scanner drives bisect backfill and tail scans of USDC Transfer events
// touching the operator TBA.
type Scanner struct {
	ledger      *Ledger
	client      LogSource
	usdc        common.Address
	operatorTBA common.Address
	reorgDepth  uint64
	firstBlock  uint64
}

// NewScanner builds a Scanner for the given USDC token contract and
// operator TBA.
func NewScanner(ledger *Ledger, client LogSource, usdc, operatorTBA common.Address, firstBlock uint64) *Scanner {
	return &Scanner{ledger: ledger, client: client, usdc: usdc, operatorTBA: operatorTBA, reorgDepth: 12, firstBlock: firstBlock}
}

// BisectBackfill locates the first block at or after firstBlock containing
// TBA activity via binary search over block ranges, then scans
// forward from there in chunks, recording every Transfer touching the TBA.
func (s *Scanner) BisectBackfill(ctx context.Context) error {
	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("ledger: bisect: latest block: %w", err)
	}
	if latest < s.firstBlock {
		return nil
	}

	start, err := s.bisectFirstActivity(ctx, s.firstBlock, latest)
	if err != nil {
		return fmt.Errorf("ledger: bisect: %w", err)
	}
	return s.scanRange(ctx, start, latest)
}

// bisectFirstActivity narrows [lo,hi] to the first block with any
// TBA-touching Transfer log, asking at each step whether the lower half
// [lo,mid] holds one and halving the range. If none of [lo,hi] does, it
// returns hi.
func (s *Scanner) bisectFirstActivity(ctx context.Context, lo, hi uint64) (uint64, error) {
	for lo < hi {
		mid := lo + (hi-lo)/2
		hasActivity, err := s.hasActivityInRange(ctx, lo, mid)
		if err != nil {
			return 0, err
		}
		if hasActivity {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

func (s *Scanner) hasActivityInRange(ctx context.Context, from, to uint64) (bool, error) {
	logs, err := s.fetchTransfers(ctx, from, to)
	if err != nil {
		return false, err
	}
	for _, log := range logs {
		if len(log.Topics) < 3 {
			continue
		}
		if common.BytesToAddress(log.Topics[1].Bytes()) == s.operatorTBA || common.BytesToAddress(log.Topics[2].Bytes()) == s.operatorTBA {
			return true, nil
		}
	}
	return false, nil
}

// TailScan re-scans [lastIndexedBlock - reorgDepth, latest] on every
// checkpoint; duplicates are absorbed by the (tx_hash, log_index) unique
// key in the registry store.
func (s *Scanner) TailScan(ctx context.Context, lastIndexedBlock uint64) error {
	latest, err := s.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("ledger: tail scan: latest block: %w", err)
	}
	from := s.firstBlock
	if lastIndexedBlock > s.reorgDepth && lastIndexedBlock-s.reorgDepth > from {
		from = lastIndexedBlock - s.reorgDepth
	}
	if from > latest {
		return nil
	}
	return s.scanRange(ctx, from, latest)
}

func (s *Scanner) scanRange(ctx context.Context, from, to uint64) error {
	for from <= to {
		chunkTo := from + usdcScanChunk - 1
		if chunkTo > to {
			chunkTo = to
		}
		logs, err := s.fetchTransfers(ctx, from, chunkTo)
		if err != nil {
			return err
		}
		for _, log := range logs {
			if err := s.applyTransferLog(ctx, log); err != nil {
				return err
			}
		}
		from = chunkTo + 1
	}
	return nil
}

func (s *Scanner) fetchTransfers(ctx context.Context, from, to uint64) ([]types.Log, error) {
	return s.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{s.usdc},
		Topics:    [][]common.Hash{{transferTopic0}},
	})
}

var transferArgs = abi.Arguments{{Type: uint256Type()}}

func uint256Type() abi.Type {
	t, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

func (s *Scanner) applyTransferLog(ctx context.Context, log types.Log) error {
	if len(log.Topics) < 3 {
		return nil
	}
	from := common.BytesToAddress(log.Topics[1].Bytes())
	to := common.BytesToAddress(log.Topics[2].Bytes())
	if from != s.operatorTBA && to != s.operatorTBA {
		return nil
	}
	values, err := transferArgs.Unpack(log.Data)
	if err != nil {
		return fmt.Errorf("ledger: unpack transfer value: %w", err)
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return fmt.Errorf("ledger: transfer value not a uint256")
	}
	return s.ledger.RecordTransfer(ctx, s.operatorTBA, from, to, log.TxHash.Hex(), log.Index, log.BlockNumber, amount.String())
}
