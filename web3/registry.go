package web3

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/registry"
)

const recipientRegistryABIJSON = `[
	{"type":"function","name":"getRecipientAddress","stateMutability":"view",
	 "inputs":[{"name":"_index","type":"uint256"},{"name":"_startTime","type":"uint256"},{"name":"_endTime","type":"uint256"}],
	 "outputs":[{"name":"","type":"address"}]}
]`

var recipientRegistryABI = mustParseABI(recipientRegistryABIJSON)

// RecipientRegistry resolves recipients through an on-chain registry. A
// recipient is valid if the registry returns a non-zero address for the
// round time window.
type RecipientRegistry struct {
	contract  *bind.BoundContract
	startTime *big.Int
	endTime   *big.Int
}

var _ registry.Registry = (*RecipientRegistry)(nil)

// NewRecipientRegistry binds the registry contract at address. The round
// window [startTime, endTime] is passed on every query.
func NewRecipientRegistry(caller bind.ContractCaller, address common.Address, startTime, endTime int64) *RecipientRegistry {
	return &RecipientRegistry{
		contract:  bind.NewBoundContract(address, recipientRegistryABI, caller, nil, nil),
		startTime: big.NewInt(startTime),
		endTime:   big.NewInt(endTime),
	}
}

func (rr *RecipientRegistry) recipientAddress(ctx context.Context, index uint32) (common.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := rr.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getRecipientAddress",
		new(big.Int).SetUint64(uint64(index)), rr.startTime, rr.endTime); err != nil {
		return common.Address{}, fmt.Errorf("failed to get recipient %d: %w", index, err)
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (rr *RecipientRegistry) IsValidRecipient(ctx context.Context, index uint32) (bool, error) {
	addr, err := rr.recipientAddress(ctx, index)
	if err != nil {
		return false, err
	}
	return addr != (common.Address{}), nil
}

func (rr *RecipientRegistry) ResolveAddress(ctx context.Context, index uint32) (common.Address, error) {
	addr, err := rr.recipientAddress(ctx, index)
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, registry.ErrNotRegistered
	}
	return addr, nil
}
