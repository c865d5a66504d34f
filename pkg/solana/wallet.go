package solana

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
)

// KeystoreEntry is the on-disk format of an encrypted wallet key.
type KeystoreEntry struct {
	Address      string `json:"address"`
	EncryptedKey string `json:"encrypted_key"`
	Version      int    `json:"version"`
}

// Wallet manages the trading key pair: generation, AES-256-GCM encryption
// at rest, and loading a signer for transaction building.
type Wallet struct {
	KeystoreDir string
}

func NewWallet(keystoreDir string) *Wallet {
	if keystoreDir == "" {
		keystoreDir = "configs/keystore"
	}
	return &Wallet{KeystoreDir: keystoreDir}
}

// GenerateKeyPair generates a new Solana key pair.
func (w *Wallet) GenerateKeyPair() (*types.Account, error) {
	account := types.NewAccount()
	return &account, nil
}

// EncryptPrivateKey encrypts a private key using AES-256-GCM
func (w *Wallet) EncryptPrivateKey(privateKey []byte, password string) (string, error) {
	key := deriveKey(password) // 32-byte key for AES-256
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Combine nonce and ciphertext for storage
	ciphertext := gcm.Seal(nonce, nonce, privateKey, nil)
	encoded := base64.StdEncoding.EncodeToString(ciphertext)
	return encoded, nil
}

// DecryptPrivateKey decrypts a private key using AES-256-GCM
func (w *Wallet) DecryptPrivateKey(encryptedKey string, password string) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encryptedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	key := deriveKey(password)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	ciphertext = ciphertext[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// SaveKeystoreEntry encrypts the account key and writes it as
// <address>.json under the keystore directory.
func (w *Wallet) SaveKeystoreEntry(account *types.Account, password string) error {
	encrypted, err := w.EncryptPrivateKey(account.PrivateKey, password)
	if err != nil {
		return fmt.Errorf("failed to encrypt private key: %w", err)
	}

	address := account.PublicKey.ToBase58()
	entry := KeystoreEntry{
		Address:      address,
		EncryptedKey: encrypted,
		Version:      1,
	}

	jsonData, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal keystore entry: %w", err)
	}

	if err := os.MkdirAll(w.KeystoreDir, 0700); err != nil {
		return fmt.Errorf("failed to create keystore directory: %w", err)
	}

	filename := filepath.Join(w.KeystoreDir, address+".json")
	if err := os.WriteFile(filename, jsonData, 0600); err != nil {
		return fmt.Errorf("failed to write keystore entry to file: %w", err)
	}

	return nil
}

// LoadKeystoreEntry reads and decrypts a keystore entry by address.
func (w *Wallet) LoadKeystoreEntry(address string, password string) (*types.Account, error) {
	filename := filepath.Join(w.KeystoreDir, address+".json")

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore entry: %w", err)
	}

	var entry KeystoreEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal keystore entry: %w", err)
	}

	if entry.Address != address {
		return nil, fmt.Errorf("address mismatch: expected %s, got %s", address, entry.Address)
	}

	privateKey, err := w.DecryptPrivateKey(entry.EncryptedKey, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt private key: %w", err)
	}

	account, err := types.AccountFromBytes(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create account from private key: %w", err)
	}

	return &account, nil
}

// LoadSigner decrypts the keystore entry and returns the key in the form
// the transaction builder signs with.
func (w *Wallet) LoadSigner(address, password string) (solana.PrivateKey, error) {
	account, err := w.LoadKeystoreEntry(address, password)
	if err != nil {
		return nil, err
	}
	return solana.PrivateKey(account.PrivateKey), nil
}

// deriveKey creates a 32-byte key from a password using SHA-256
func deriveKey(password string) []byte {
	hash := sha256.Sum256([]byte(password))
	return hash[:]
}
