// Copyright 2025 Certen Protocol
//
// Ethereum Client
// Thin wrapper over ethclient for the one thing the audit core's EVM
// anchor provider needs: posting a content digest as transaction calldata
// and waiting for it to be mined.

package ethereum

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client represents an Ethereum client.
type Client struct {
	client  *ethclient.Client
	chainID *big.Int
	url     string
}

// NewClient creates a new Ethereum client.
func NewClient(url string, chainID int64) (*Client, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Ethereum: %w", err)
	}

	return &Client{
		client:  client,
		chainID: big.NewInt(chainID),
		url:     url,
	}, nil
}

// GetNonce gets the pending nonce for an address.
func (c *Client) GetNonce(ctx context.Context, address common.Address) (uint64, error) {
	nonce, err := c.client.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// GetGasPrice gets the current suggested gas price.
func (c *Client) GetGasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return gasPrice, nil
}

// CreateTransactor creates a signer-bound transactor from a private key.
func (c *Client) CreateTransactor(privateKeyHex string) (*bind.TransactOpts, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	return auth, nil
}

// GetPublicAddress derives the public address from a private key.
func GetPublicAddress(privateKeyHex string) (common.Address, error) {
	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, fmt.Errorf("failed to cast public key to ECDSA")
	}

	return crypto.PubkeyToAddress(*publicKeyECDSA), nil
}

// WaitForTransaction waits for a transaction to be mined.
func (c *Client) WaitForTransaction(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to wait for transaction: %w", err)
	}
	return receipt, nil
}

// GetChainID returns the configured chain ID.
func (c *Client) GetChainID() *big.Int {
	return c.chainID
}

// GetClient returns the underlying ethclient, for callers that need raw
// access (e.g. constructing and sending a transaction directly).
func (c *Client) GetClient() *ethclient.Client {
	return c.client
}

// Health checks that the node is reachable and serving block queries.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("ethereum health check failed: %w", err)
	}
	return nil
}

// AnchorReceipt is the result of anchoring a digest on-chain.
type AnchorReceipt struct {
	TransactionHash string
	BlockNumber     uint64
	BlockHash       string
	GasUsed         uint64
	Timestamp       time.Time
}

// AnchorDigest sends a zero-value transaction to target whose calldata is
// digest, signs it with privateKeyHex, and blocks until it is mined. This
// is the one domain-specific operation the audit core's EVM anchor
// provider needs from an Ethereum client: committing an opaque digest to a
// block, not invoking a contract method.
func (c *Client) AnchorDigest(ctx context.Context, privateKeyHex string, target common.Address, digest []byte) (*AnchorReceipt, error) {
	auth, err := c.CreateTransactor(privateKeyHex)
	if err != nil {
		return nil, err
	}

	nonce, err := c.GetNonce(ctx, auth.From)
	if err != nil {
		return nil, err
	}

	gasPrice, err := c.GetGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	tx := types.NewTransaction(nonce, target, big.NewInt(0), 100000, gasPrice, digest)
	signedTx, err := auth.Signer(auth.From, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign anchor transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send anchor transaction: %w", err)
	}

	receipt, err := c.WaitForTransaction(ctx, signedTx)
	if err != nil {
		return nil, err
	}

	return &AnchorReceipt{
		TransactionHash: signedTx.Hash().Hex(),
		BlockNumber:     receipt.BlockNumber.Uint64(),
		BlockHash:       receipt.BlockHash.Hex(),
		GasUsed:         receipt.GasUsed,
		Timestamp:       time.Now().UTC(),
	}, nil
}
