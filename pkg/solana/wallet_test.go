package solana

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWallet(t *testing.T) {
	w := NewWallet(t.TempDir())

	t.Run("Generate Key Pair", func(t *testing.T) {
		account, err := w.GenerateKeyPair()
		require.NoError(t, err)
		assert.NotNil(t, account)
		assert.NotEmpty(t, account.PublicKey.ToBase58())
		assert.Equal(t, 64, len(account.PrivateKey), "Private key should be 64 bytes")
	})

	t.Run("Encrypt and Decrypt Private Key", func(t *testing.T) {
		account, err := w.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		encrypted, err := w.EncryptPrivateKey(account.PrivateKey, password)
		require.NoError(t, err)
		assert.NotEmpty(t, encrypted)

		decrypted, err := w.DecryptPrivateKey(encrypted, password)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(account.PrivateKey[:], decrypted), "Decrypted private key should match original")
	})

	t.Run("Wrong Password Fails", func(t *testing.T) {
		account, err := w.GenerateKeyPair()
		require.NoError(t, err)

		encrypted, err := w.EncryptPrivateKey(account.PrivateKey, "right-password")
		require.NoError(t, err)

		_, err = w.DecryptPrivateKey(encrypted, "wrong-password")
		assert.Error(t, err)
	})

	t.Run("Save and Load Keystore Entry", func(t *testing.T) {
		account, err := w.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		require.NoError(t, w.SaveKeystoreEntry(account, password))

		address := account.PublicKey.ToBase58()
		loaded, err := w.LoadKeystoreEntry(address, password)
		require.NoError(t, err)
		assert.Equal(t, address, loaded.PublicKey.ToBase58())
		assert.True(t, bytes.Equal(account.PrivateKey[:], loaded.PrivateKey[:]))
	})

	t.Run("Load Signer", func(t *testing.T) {
		account, err := w.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		require.NoError(t, w.SaveKeystoreEntry(account, password))

		signer, err := w.LoadSigner(account.PublicKey.ToBase58(), password)
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey.ToBase58(), signer.PublicKey().String())
	})

	t.Run("Unknown Address Fails", func(t *testing.T) {
		_, err := w.LoadKeystoreEntry("missing-address", "pw")
		assert.Error(t, err)
	})
}
