// Copyright 2025 Certen Protocol
//
// EVM Anchor Provider
// Posts a content digest to an EVM chain as transaction calldata, via the
// audit core's Ethereum client wrapper.

package evm

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/caas-systems/audit-core/pkg/ethereum"
	"github.com/caas-systems/audit-core/pkg/proof"
)

// Provider anchors digests to an EVM chain by sending a zero-value
// transaction whose calldata is the digest bytes, to a fixed target
// address.
type Provider struct {
	client        *ethereum.Client
	privateKeyHex string
	target        common.Address
}

// Config configures a Provider.
type Config struct {
	RPCURL        string
	ChainID       int64
	PrivateKeyHex string
	TargetAddress string
}

// New dials cfg.RPCURL and returns a Provider ready to anchor.
func New(cfg Config) (*Provider, error) {
	client, err := ethereum.NewClient(cfg.RPCURL, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("evm: %w", err)
	}
	return &Provider{
		client:        client,
		privateKeyHex: cfg.PrivateKeyHex,
		target:        common.HexToAddress(cfg.TargetAddress),
	}, nil
}

// Anchor implements anchor.Provider: digest is expected to be a
// 64-character lowercase hex SHA-256 string. Anchor blocks until the
// transaction is mined.
func (p *Provider) Anchor(ctx context.Context, digest string, metadata map[string]interface{}) (*proof.AnchoringReference, error) {
	calldata, err := hex.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("evm: digest %q is not hex: %w", digest, err)
	}

	receipt, err := p.client.AnchorDigest(ctx, p.privateKeyHex, p.target, calldata)
	if err != nil {
		return nil, fmt.Errorf("evm: %w", err)
	}

	meta := map[string]interface{}{
		"block_number": receipt.BlockNumber,
		"block_hash":   receipt.BlockHash,
		"gas_used":     receipt.GasUsed,
	}
	for k, v := range metadata {
		meta[k] = v
	}

	return &proof.AnchoringReference{
		AnchorType: "blockchain",
		AnchorID:   receipt.TransactionHash,
		Timestamp:  receipt.Timestamp,
		AnchorHash: digest,
		Metadata:   meta,
	}, nil
}
