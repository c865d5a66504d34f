package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// ComputeBudgetProgramID is the on-chain compute budget program.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// ConfirmationState is the terminal state of a submitted transaction.
type ConfirmationState int

const (
	ConfirmationPending ConfirmationState = iota
	ConfirmationConfirmed
	ConfirmationFailed
	ConfirmationTimeout
)

func (s ConfirmationState) String() string {
	switch s {
	case ConfirmationConfirmed:
		return "confirmed"
	case ConfirmationFailed:
		return "failed"
	case ConfirmationTimeout:
		return "timeout"
	default:
		return "pending"
	}
}

// rpc send limiter, shared across venues
var sendLimiter = rate.NewLimiter(rate.Every(200*time.Millisecond), 5)

// SetComputeUnitLimitInstruction builds the compute budget instruction that
// caps compute units for the transaction. Opcode 2, u32 little endian.
func SetComputeUnitLimitInstruction(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// SetComputeUnitPriceInstruction builds the compute budget instruction that
// sets the priority fee in micro-lamports per compute unit. Opcode 3, u64
// little endian.
func SetComputeUnitPriceInstruction(microLamports uint64) solana.Instruction {
	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:], microLamports)
	return solana.NewInstruction(ComputeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

// BuildSignedTransaction assembles instructions behind compute budget
// directives, fetches a fresh blockhash and signs with the payer key.
func BuildSignedTransaction(ctx context.Context, client *rpc.Client, payer solana.PrivateKey, computeUnits uint32, priorityFee uint64, instructions ...solana.Instruction) (*solana.Transaction, error) {
	recent, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}

	all := make([]solana.Instruction, 0, len(instructions)+2)
	if computeUnits > 0 {
		all = append(all, SetComputeUnitLimitInstruction(computeUnits))
	}
	if priorityFee > 0 {
		all = append(all, SetComputeUnitPriceInstruction(priorityFee))
	}
	all = append(all, instructions...)

	tx, err := solana.NewTransaction(
		all,
		recent.Value.Blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if payer.PublicKey().Equals(key) {
			return &payer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	return tx, nil
}

// SendTransaction submits a signed transaction with preflight skipped.
func SendTransaction(ctx context.Context, client *rpc.Client, tx *solana.Transaction) (solana.Signature, error) {
	if err := sendLimiter.Wait(ctx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       true,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}

	log.WithField("signature", sig.String()).Info("transaction submitted")
	return sig, nil
}

// WaitForConfirmation polls signature status until the transaction confirms,
// fails on-chain, or the timeout elapses. Timeout means the outcome is
// unknown, not that the transaction was rejected. Context expiry is reported
// the same way: the transaction was already submitted, so its fate on chain
// is still unresolved.
func WaitForConfirmation(ctx context.Context, client *rpc.Client, sig solana.Signature, timeout time.Duration) (ConfirmationState, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.WithField("signature", sig.String()).Warn("context ended while awaiting confirmation, outcome unknown")
			return ConfirmationTimeout, nil
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			log.WithField("signature", sig.String()).Warn("confirmation timed out")
			return ConfirmationTimeout, nil
		}

		out, err := client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			log.WithError(err).Debug("get signature statuses failed, retrying")
			continue
		}
		if len(out.Value) == 0 || out.Value[0] == nil {
			continue
		}

		status := out.Value[0]
		if status.Err != nil {
			log.WithFields(log.Fields{
				"signature": sig.String(),
				"error":     status.Err,
			}).Error("transaction failed on chain")
			return ConfirmationFailed, nil
		}
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return ConfirmationConfirmed, nil
		}
	}
}

// EncodeTransactionBase64 serializes a signed transaction to base64.
func EncodeTransactionBase64(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransactionBase64 deserializes a base64 transaction, e.g. one
// returned by the Jupiter swap API.
func DecodeTransactionBase64(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}
