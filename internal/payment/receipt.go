package payment

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/hyperware-ai/hypergrid-operator/internal/chainenv"
)

var transferTopic0 = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var transferValueArgs = abi.Arguments{{Type: mustUint256Type()}}

func mustUint256Type() abi.Type {
	t, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// hasExpectedTransferLog reports whether receipt contains a USDC Transfer
// log matching (from=operatorTBA, to=providerWallet, value=amountUnits), and
// if so, the index of that log within the receipt, needed to populate
// usdc_call_ledger.usdc_log_index on a confirmed payment.
func hasExpectedTransferLog(receipt *Receipt, env chainenv.Constants, operatorTBA, providerWallet common.Address, amountUnits string) (matched bool, logIndex uint) {
	usdc, err := env.USDC()
	if err != nil {
		return false, 0
	}
	wantAmount, ok := new(big.Int).SetString(amountUnits, 10)
	if !ok {
		return false, 0
	}
	for _, log := range receipt.Logs {
		if log.Address != usdc {
			continue
		}
		if len(log.Topics) < 3 || log.Topics[0] != transferTopic0 {
			continue
		}
		from := common.BytesToAddress(log.Topics[1].Bytes())
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if from != operatorTBA || to != providerWallet {
			continue
		}
		values, err := transferValueArgs.Unpack(log.Data)
		if err != nil {
			continue
		}
		amount, ok := values[0].(*big.Int)
		if !ok {
			continue
		}
		if amount.Cmp(wantAmount) == 0 {
			return true, log.LogIndex
		}
	}
	return false, 0
}
