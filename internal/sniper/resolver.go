package sniper

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
)

// splMintAccountSize is the byte size of an SPL token mint account.
const splMintAccountSize = 82

// accounts that appear in every pool-init transaction and are never the
// traded token
var ignoredAccounts = map[string]struct{}{
	"So11111111111111111111111111111111111111112": {}, // WSOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {}, // USDC
}

// RPCResolver resolves the token mint behind a pool-initialization
// transaction by fetching the transaction and scanning its accounts for an
// SPL mint.
type RPCResolver struct {
	client *rpc.Client
}

func NewRPCResolver(client *rpc.Client) *RPCResolver {
	return &RPCResolver{client: client}
}

// ResolveNewPool fetches the transaction and returns the first account that
// is a token mint other than the quote currencies.
func (r *RPCResolver) ResolveNewPool(ctx context.Context, signature string) (string, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature: %w", err)
	}

	maxVersion := uint64(0)
	out, err := r.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return "", fmt.Errorf("get transaction: %w", err)
	}
	if out == nil || out.Transaction == nil {
		return "", fmt.Errorf("transaction %s not found", signature)
	}

	tx, err := out.Transaction.GetTransaction()
	if err != nil {
		return "", fmt.Errorf("decode transaction: %w", err)
	}

	for _, key := range tx.Message.AccountKeys {
		addr := key.String()
		if _, skip := ignoredAccounts[addr]; skip {
			continue
		}
		if isMint, err := r.isTokenMint(ctx, key); err == nil && isMint {
			return addr, nil
		}
	}

	return "", fmt.Errorf("no token mint found in transaction %s", signature)
}

func (r *RPCResolver) isTokenMint(ctx context.Context, key solana.PublicKey) (bool, error) {
	info, err := r.client.GetAccountInfo(ctx, key)
	if err != nil {
		return false, err
	}
	if info.Value == nil {
		return false, nil
	}
	if !info.Value.Owner.Equals(solana.TokenProgramID) {
		return false, nil
	}

	data := info.Value.Data.GetBinary()
	if len(data) != splMintAccountSize {
		log.WithField("account", key.String()).Debug("token-owned account is not a mint")
		return false, nil
	}
	return true, nil
}
