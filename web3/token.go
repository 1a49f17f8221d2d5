package web3

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/qf-tally/log"
	"github.com/vocdoni/qf-tally/settlement"
)

const erc20ABIJSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

var erc20ABI = mustParseABI(erc20ABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// TokenSettlement pays out allocations as ERC20 token transfers signed by
// the client account.
type TokenSettlement struct {
	client   *Client
	token    common.Address
	contract *bind.BoundContract
}

var _ settlement.Settlement = (*TokenSettlement)(nil)

// NewTokenSettlement binds the ERC20 token at address.
func NewTokenSettlement(client *Client, token common.Address) *TokenSettlement {
	return &TokenSettlement{
		client:   client,
		token:    token,
		contract: bind.NewBoundContract(token, erc20ABI, client.backend, client.backend, client.backend),
	}
}

// Transfer signs a token transfer of amount to the given address and sends
// it. It returns the transaction hash. Failures before the transaction is
// sent wrap settlement.ErrNotSubmitted.
func (ts *TokenSettlement) Transfer(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	opts, err := ts.client.authTransactOpts(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", settlement.ErrNotSubmitted, err)
	}
	opts.NoSend = true
	tx, err := ts.contract.Transact(opts, "transfer", to, amount)
	if err != nil {
		return "", fmt.Errorf("%w: sign transfer: %v", settlement.ErrNotSubmitted, err)
	}
	if err := ts.client.backend.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("send transfer %s: %w", tx.Hash().Hex(), err)
	}
	log.Infow("token transfer sent", "token", ts.token.Hex(), "to", to.Hex(),
		"amount", amount.String(), "tx", tx.Hash().Hex())
	return tx.Hash().Hex(), nil
}

// BalanceOf returns the token balance of an account.
func (ts *TokenSettlement) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := ts.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account); err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
