// Package web3 binds the node to EVM chains: an ERC20 token used to settle
// payouts and an on-chain recipient registry.
package web3

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/qf-tally/log"
)

const (
	// DefaultMaxWeb3ClientRetries is the number of attempts to dial a web3
	// provider.
	DefaultMaxWeb3ClientRetries = 5
	// web3QueryTimeout bounds every read and nonce query.
	web3QueryTimeout = 10 * time.Second
	// defaultGasLimit is used when no gas limit is configured.
	defaultGasLimit = 200000
)

// Client holds a connection to a web3 endpoint and the account used to
// sign transactions.
type Client struct {
	ChainID  uint64
	GasLimit uint64

	backend bind.ContractBackend
	closer  func()
	privKey *ecdsa.PrivateKey
	address common.Address
}

// Dial connects to the web3 endpoint at uri and reads its chain ID.
func Dial(ctx context.Context, uri string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	cli, err := connect(ctx, uri)
	if err != nil {
		return nil, err
	}
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		cli.Close()
		return nil, fmt.Errorf("failed to get chain ID from %s: %w", uri, err)
	}
	c := NewClient(cli, chainID.Uint64())
	c.closer = cli.Close
	log.Infow("connected to web3 endpoint", "chainID", c.ChainID)
	return c, nil
}

// NewClient returns a client over an already connected backend.
func NewClient(backend bind.ContractBackend, chainID uint64) *Client {
	return &Client{
		ChainID:  chainID,
		GasLimit: defaultGasLimit,
		backend:  backend,
	}
}

// Close closes the underlying connection, if the client opened it.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// SetAccountPrivateKey sets the private key used to sign transactions.
func (c *Client) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	c.privKey, err = crypto.HexToECDSA(hexPrivKey)
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	c.address = crypto.PubkeyToAddress(c.privKey.PublicKey)
	return nil
}

// Caller returns the backend used for read-only contract calls.
func (c *Client) Caller() bind.ContractCaller {
	return c.backend
}

// AccountAddress returns the address of the signing account.
func (c *Client) AccountAddress() common.Address {
	return c.address
}

// authTransactOpts returns signed transact options with the nonce and gas
// tip cap taken from the backend.
func (c *Client) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	auth, err := bind.NewKeyedTransactorWithChainID(c.privKey, new(big.Int).SetUint64(c.ChainID))
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	log.Debugw("getting nonce", "address", c.address.Hex())
	nonce, err := c.backend.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	if auth.GasTipCap, err = c.backend.SuggestGasTipCap(ctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.GasLimit = c.GasLimit
	auth.Context = ctx
	return auth, nil
}

// connect dials uri, retrying up to DefaultMaxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}
