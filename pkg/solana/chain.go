package solana

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

// LamportsPerSol converts between lamports and SOL.
const LamportsPerSol = 1_000_000_000

// Chain wraps a Solana RPC client for account level reads.
type Chain struct {
	client *rpc.Client
}

func NewChain(rpcURL string) *Chain {
	return &Chain{client: rpc.New(rpcURL)}
}

// Client exposes the underlying RPC client for transaction submission.
func (c *Chain) Client() *rpc.Client {
	return c.client
}

// GetSolBalance returns the SOL balance of an address.
func (c *Chain) GetSolBalance(ctx context.Context, address string) (float64, error) {
	pubkey, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return 0, fmt.Errorf("invalid address %s: %w", address, err)
	}

	out, err := c.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return float64(out.Value) / LamportsPerSol, nil
}

// MintAuthorityRevoked reports whether the mint authority of an SPL token
// has been removed. The mint account layout starts with a 4-byte COption
// tag for the authority: 0 means none, 1 means an authority is set.
func (c *Chain) MintAuthorityRevoked(ctx context.Context, mint string) (bool, error) {
	pubkey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return false, fmt.Errorf("invalid mint %s: %w", mint, err)
	}

	out, err := c.client.GetAccountInfo(ctx, pubkey)
	if err != nil {
		return false, fmt.Errorf("get mint account: %w", err)
	}
	if out.Value == nil {
		return false, fmt.Errorf("mint account %s not found", mint)
	}

	data := out.Value.Data.GetBinary()
	if len(data) < 4 {
		return false, fmt.Errorf("mint account %s data too short: %d bytes", mint, len(data))
	}

	tag := binary.LittleEndian.Uint32(data[:4])
	revoked := tag == 0

	log.WithFields(log.Fields{
		"mint":    mint,
		"revoked": revoked,
	}).Debug("mint authority checked")

	return revoked, nil
}
