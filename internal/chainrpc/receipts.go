package chainrpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/hyperware-ai/hypergrid-operator/internal/bootstrap"
	"github.com/hyperware-ai/hypergrid-operator/internal/payment"
)

// ReceiptClient is the ethclient.Client method ReceiptSource depends on.
type ReceiptClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReceiptSource adapts a live ethclient.Client into payment.ReceiptFetcher;
// BootstrapReceiptFetcher wraps it for bootstrap.ReceiptFetcher, since the
// two packages each define their own minimal Receipt/ReceiptLog shape to
// avoid depending on one another.
type ReceiptSource struct {
	rpc ReceiptClient
}

// NewReceiptSource wraps an ethclient.Client (or any ReceiptClient) for use
// by both the payment engine and the bootstrap onboarder.
func NewReceiptSource(rpc ReceiptClient) *ReceiptSource {
	return &ReceiptSource{rpc: rpc}
}

// TransactionReceipt implements payment.ReceiptFetcher.
func (r *ReceiptSource) TransactionReceipt(ctx context.Context, txHash common.Hash) (*payment.Receipt, error) {
	receipt, err := r.rpc.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: fetch receipt %s: %w", txHash, err)
	}
	return &payment.Receipt{Status: receipt.Status, Logs: convertLogsForPayment(receipt.Logs)}, nil
}

// BootstrapReceiptFetcher wraps the same ReceiptSource in the
// bootstrap.ReceiptFetcher shape, since bootstrap.Receipt is defined
// independently from payment.Receipt.
type BootstrapReceiptFetcher struct {
	src *ReceiptSource
}

// NewBootstrapReceiptFetcher builds a bootstrap.ReceiptFetcher from the
// same underlying ReceiptSource used for payments.
func NewBootstrapReceiptFetcher(src *ReceiptSource) *BootstrapReceiptFetcher {
	return &BootstrapReceiptFetcher{src: src}
}

// TransactionReceipt implements bootstrap.ReceiptFetcher.
func (b *BootstrapReceiptFetcher) TransactionReceipt(ctx context.Context, txHash common.Hash) (*bootstrap.Receipt, error) {
	receipt, err := b.src.rpc.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, fmt.Errorf("chainrpc: fetch receipt %s: %w", txHash, err)
	}
	return &bootstrap.Receipt{Status: receipt.Status, Logs: convertLogsForBootstrap(receipt.Logs)}, nil
}

func convertLogsForPayment(logs []*types.Log) []payment.ReceiptLog {
	out := make([]payment.ReceiptLog, 0, len(logs))
	for _, l := range logs {
		out = append(out, payment.ReceiptLog{Address: l.Address, Topics: l.Topics, Data: l.Data, LogIndex: l.Index})
	}
	return out
}

func convertLogsForBootstrap(logs []*types.Log) []bootstrap.ReceiptLog {
	out := make([]bootstrap.ReceiptLog, 0, len(logs))
	for _, l := range logs {
		out = append(out, bootstrap.ReceiptLog{Address: l.Address, Topics: l.Topics, Data: l.Data})
	}
	return out
}
