// Package web3 wraps the DaVinci process and organization registry
// contracts for clients that create processes on-chain: binding setup,
// transaction signing and transaction lifecycle tracking.
package web3

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	npbindings "github.com/vocdoni/davinci-contracts/golang-types"
	"github.com/vocdoni/davinci-sdk/crypto/ethereum"
	"github.com/vocdoni/davinci-sdk/log"
)

// web3QueryTimeout is the timeout for web3 queries.
const web3QueryTimeout = 10 * time.Second

// Addresses contains the addresses of the contracts deployed in the network.
type Addresses struct {
	OrganizationRegistry common.Address
	ProcessRegistry      common.Address
}

// Contracts contains the bindings to the deployed contracts.
type Contracts struct {
	ChainID            uint64
	ContractsAddresses *Addresses

	organizations *npbindings.OrganizationRegistry
	processes     *npbindings.ProcessRegistry
	cli           *ethclient.Client
	signer        *ethereum.Signer
}

// New creates a new Contracts instance connected to the given web3 endpoint.
func New(web3rpc string) (*Contracts, error) {
	cli, err := ethclient.Dial(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to web3 endpoint: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), web3QueryTimeout)
	defer cancel()
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}
	lastBlock, err := cli.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get block number: %w", err)
	}
	log.Infow("web3 client initialized",
		"chainID", chainID.Uint64(),
		"lastBlock", lastBlock,
	)
	return &Contracts{
		ChainID: chainID.Uint64(),
		cli:     cli,
	}, nil
}

// LoadContracts binds the process and organization registries at the given
// addresses.
func (c *Contracts) LoadContracts(addresses *Addresses) error {
	organizations, err := npbindings.NewOrganizationRegistry(addresses.OrganizationRegistry, c.cli)
	if err != nil {
		return fmt.Errorf("failed to bind organization registry: %w", err)
	}
	processes, err := npbindings.NewProcessRegistry(addresses.ProcessRegistry, c.cli)
	if err != nil {
		return fmt.Errorf("failed to bind process registry: %w", err)
	}
	c.ContractsAddresses = addresses
	c.organizations = organizations
	c.processes = processes
	return nil
}

// SetAccountPrivateKey sets the private key to be used for signing transactions.
func (c *Contracts) SetAccountPrivateKey(hexPrivKey string) error {
	signer, err := ethereum.NewSignerFromHex(hexPrivKey)
	if err != nil {
		return fmt.Errorf("failed to add private key: %w", err)
	}
	c.signer = signer
	return nil
}

// AccountAddress returns the address of the account used to sign transactions.
func (c *Contracts) AccountAddress() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

// SignMessage signs a message with the account private key.
func (c *Contracts) SignMessage(msg []byte) ([]byte, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("no private key set")
	}
	signature, err := c.signer.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	return signature.Bytes(), nil
}

// AccountNonce returns the nonce of the account used to sign transactions.
func (c *Contracts) AccountNonce(ctx context.Context) (uint64, error) {
	if c.signer == nil {
		return 0, fmt.Errorf("no private key set")
	}
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	return c.cli.PendingNonceAt(ctx, c.signer.Address())
}

// authTransactOpts creates the transact options with the configured private
// key, setting the chain ID and the pending nonce.
func (c *Contracts) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("no private key set")
	}
	bChainID := new(big.Int).SetUint64(c.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID((*ecdsa.PrivateKey)(c.signer), bChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	nonce, err := c.cli.PendingNonceAt(ctx, c.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(nonce)
	return auth, nil
}
