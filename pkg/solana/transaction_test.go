package solana

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeBudgetInstructions(t *testing.T) {
	t.Run("unit limit layout", func(t *testing.T) {
		ix := SetComputeUnitLimitInstruction(200_000)

		assert.Equal(t, ComputeBudgetProgramID, ix.ProgramID())
		data, err := ix.Data()
		require.NoError(t, err)
		// opcode 2, then 200000 little endian
		assert.Equal(t, []byte{2, 0x40, 0x0d, 0x03, 0x00}, data)
		assert.Empty(t, ix.Accounts())
	})

	t.Run("unit price layout", func(t *testing.T) {
		ix := SetComputeUnitPriceInstruction(10_000)

		data, err := ix.Data()
		require.NoError(t, err)
		assert.Equal(t, []byte{3, 0x10, 0x27, 0, 0, 0, 0, 0, 0}, data)
	})
}

func TestWaitForConfirmationContextExpiry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// signature never resolves
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":[null]}}`)
	}))
	defer server.Close()
	client := rpc.New(server.URL)

	t.Run("already canceled context reports unknown outcome", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		state, err := WaitForConfirmation(ctx, client, solana.Signature{}, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, ConfirmationTimeout, state)
	})

	t.Run("context expiry during polling reports unknown outcome", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
		defer cancel()

		state, err := WaitForConfirmation(ctx, client, solana.Signature{}, 10*time.Second)
		require.NoError(t, err)
		assert.Equal(t, ConfirmationTimeout, state)
	})
}

func TestConfirmationStateString(t *testing.T) {
	assert.Equal(t, "confirmed", ConfirmationConfirmed.String())
	assert.Equal(t, "failed", ConfirmationFailed.String())
	assert.Equal(t, "timeout", ConfirmationTimeout.String())
	assert.Equal(t, "pending", ConfirmationPending.String())
}

func TestTransactionBase64RoundTrip(t *testing.T) {
	wallet := solana.NewWallet()
	key := wallet.PrivateKey

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			SetComputeUnitLimitInstruction(200_000),
			SetComputeUnitPriceInstruction(10_000),
		},
		solana.Hash{},
		solana.TransactionPayer(key.PublicKey()),
	)
	require.NoError(t, err)

	_, err = tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		if key.PublicKey().Equals(pub) {
			return &key
		}
		return nil
	})
	require.NoError(t, err)

	encoded, err := EncodeTransactionBase64(tx)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeTransactionBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures, decoded.Signatures)
	assert.Equal(t, tx.Message.AccountKeys, decoded.Message.AccountKeys)
}

func TestDecodeTransactionBase64Invalid(t *testing.T) {
	_, err := DecodeTransactionBase64("not-base64!!!")
	assert.Error(t, err)
}

func TestCpmmPDADerivation(t *testing.T) {
	authority, err := CpmmAuthority()
	require.NoError(t, err)
	assert.False(t, authority.IsZero())

	config, err := CpmmAmmConfig(0)
	require.NoError(t, err)

	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	pool, err := CpmmPoolState(config, mintA, mintB)
	require.NoError(t, err)

	// derivation is deterministic
	again, err := CpmmPoolState(config, mintA, mintB)
	require.NoError(t, err)
	assert.Equal(t, pool, again)

	// and order sensitive
	swapped, err := CpmmPoolState(config, mintB, mintA)
	require.NoError(t, err)
	assert.NotEqual(t, pool, swapped)
}

func TestBuildCpmmSwapInstruction(t *testing.T) {
	accounts := CpmmSwapAccounts{
		Payer:              solana.NewWallet().PublicKey(),
		Authority:          solana.NewWallet().PublicKey(),
		AmmConfig:          solana.NewWallet().PublicKey(),
		PoolState:          solana.NewWallet().PublicKey(),
		InputTokenAccount:  solana.NewWallet().PublicKey(),
		OutputTokenAccount: solana.NewWallet().PublicKey(),
		InputVault:         solana.NewWallet().PublicKey(),
		OutputVault:        solana.NewWallet().PublicKey(),
		InputTokenProgram:  solana.TokenProgramID,
		OutputTokenProgram: solana.TokenProgramID,
		InputMint:          solana.NewWallet().PublicKey(),
		OutputMint:         solana.NewWallet().PublicKey(),
		ObservationState:   solana.NewWallet().PublicKey(),
	}

	ix, err := BuildCpmmSwapInstruction(accounts, 1_000_000, 900_000)
	require.NoError(t, err)

	assert.Equal(t, RaydiumCpmmProgramID, ix.ProgramID())
	assert.Len(t, ix.Accounts(), 13)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, []byte{143, 190, 90, 218, 196, 30, 51, 222}, data[:8])

	_, err = BuildCpmmSwapInstruction(accounts, 0, 0)
	assert.Error(t, err)
}
