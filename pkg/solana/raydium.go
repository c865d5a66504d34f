package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Raydium CPMM program and PDA seeds
var (
	RaydiumCpmmProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

	cpmmAuthSeed        = []byte("vault_and_lp_mint_auth_seed")
	cpmmPoolSeed        = []byte("pool")
	cpmmPoolVaultSeed   = []byte("pool_vault")
	cpmmObservationSeed = []byte("observation")
	cpmmAmmConfigSeed   = []byte("amm_config")
)

// swap_base_input anchor discriminator
var cpmmSwapBaseInputDiscriminator = []byte{143, 190, 90, 218, 196, 30, 51, 222}

// CpmmAuthority derives the vault and lp mint authority PDA.
func CpmmAuthority() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{cpmmAuthSeed}, RaydiumCpmmProgramID)
	return addr, err
}

// CpmmAmmConfig derives the amm config PDA for the given config index.
func CpmmAmmConfig(index uint16) (solana.PublicKey, error) {
	idx := make([]byte, 2)
	binary.BigEndian.PutUint16(idx, index)
	addr, _, err := solana.FindProgramAddress([][]byte{cpmmAmmConfigSeed, idx}, RaydiumCpmmProgramID)
	return addr, err
}

// CpmmPoolState derives the pool state PDA for a mint pair under an amm
// config. Mint order must match the on-chain pool.
func CpmmPoolState(ammConfig, mint0, mint1 solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{cpmmPoolSeed, ammConfig.Bytes(), mint0.Bytes(), mint1.Bytes()},
		RaydiumCpmmProgramID,
	)
	return addr, err
}

// CpmmPoolVault derives the pool vault PDA holding one side of the pair.
func CpmmPoolVault(poolState, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{cpmmPoolVaultSeed, poolState.Bytes(), mint.Bytes()},
		RaydiumCpmmProgramID,
	)
	return addr, err
}

// CpmmObservationState derives the price observation PDA for a pool.
func CpmmObservationState(poolState solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{cpmmObservationSeed, poolState.Bytes()},
		RaydiumCpmmProgramID,
	)
	return addr, err
}

// CpmmSwapAccounts carries every account the swap instruction references.
type CpmmSwapAccounts struct {
	Payer              solana.PublicKey
	Authority          solana.PublicKey
	AmmConfig          solana.PublicKey
	PoolState          solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputVault         solana.PublicKey
	OutputVault        solana.PublicKey
	InputTokenProgram  solana.PublicKey
	OutputTokenProgram solana.PublicKey
	InputMint          solana.PublicKey
	OutputMint         solana.PublicKey
	ObservationState   solana.PublicKey
}

// BuildCpmmSwapInstruction builds a swap_base_input instruction: swap
// amountIn of the input mint for at least minAmountOut of the output mint.
func BuildCpmmSwapInstruction(accounts CpmmSwapAccounts, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	if amountIn == 0 {
		return nil, fmt.Errorf("amount in must be positive")
	}

	data := make([]byte, 0, 24)
	data = append(data, cpmmSwapBaseInputDiscriminator...)

	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, amountIn)
	data = append(data, buf...)
	binary.LittleEndian.PutUint64(buf, minAmountOut)
	data = append(data, buf...)

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Payer, true, true),
		solana.NewAccountMeta(accounts.Authority, false, false),
		solana.NewAccountMeta(accounts.AmmConfig, false, false),
		solana.NewAccountMeta(accounts.PoolState, true, false),
		solana.NewAccountMeta(accounts.InputTokenAccount, true, false),
		solana.NewAccountMeta(accounts.OutputTokenAccount, true, false),
		solana.NewAccountMeta(accounts.InputVault, true, false),
		solana.NewAccountMeta(accounts.OutputVault, true, false),
		solana.NewAccountMeta(accounts.InputTokenProgram, false, false),
		solana.NewAccountMeta(accounts.OutputTokenProgram, false, false),
		solana.NewAccountMeta(accounts.InputMint, false, false),
		solana.NewAccountMeta(accounts.OutputMint, false, false),
		solana.NewAccountMeta(accounts.ObservationState, true, false),
	}

	return solana.NewInstruction(RaydiumCpmmProgramID, metas, data), nil
}
