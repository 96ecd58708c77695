// Package keystore stores account signing keys on disk, encrypted with a
// password. Each account is one JSON file holding its address, public key
// and the sealed private key.
package keystore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Klingon-tech/winter-staking/pkg/crypto"
	"github.com/Klingon-tech/winter-staking/pkg/types"
)

const (
	fileVersion = 1
	fileExt     = ".key"
)

// Keystore errors.
var (
	ErrAccountExists   = errors.New("account already exists")
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidName     = errors.New("invalid account name")
)

// keyFile is the on-disk JSON format for an encrypted account key.
type keyFile struct {
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	Address      string    `json:"address"`
	PubKey       string    `json:"pubkey"`
	EncryptedKey []byte    `json:"encrypted_key"`
}

// Account is the public part of a stored key.
type Account struct {
	Name      string
	Address   types.Address
	PubKey    []byte
	CreatedAt time.Time
}

// Keystore manages encrypted key files in one directory.
type Keystore struct {
	dir string
}

// New creates a keystore that reads/writes to dir, creating it if needed.
func New(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) path(name string) string {
	return filepath.Join(ks.dir, name+fileExt)
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Create seals key under password and stores it as account name.
func (ks *Keystore) Create(name string, key *crypto.PrivateKey, password []byte, params Params) (*Account, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	path := ks.path(name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
	}

	pub := key.PublicKey()
	addr := crypto.AddressFromPubKey(pub)

	raw := key.Serialize()
	defer wipe(raw)
	sealed, err := seal(raw, password, addr[:], params)
	if err != nil {
		return nil, fmt.Errorf("seal key: %w", err)
	}

	kf := keyFile{
		Version:      fileVersion,
		CreatedAt:    time.Now().UTC(),
		Address:      addr.Hex(),
		PubKey:       hex.EncodeToString(pub),
		EncryptedKey: sealed,
	}
	if err := writeFile(path, &kf); err != nil {
		return nil, err
	}
	return kf.account(name)
}

// Load decrypts account name and returns its private key.
func (ks *Keystore) Load(name string, password []byte) (*crypto.PrivateKey, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	acct, err := kf.account(name)
	if err != nil {
		return nil, err
	}

	raw, err := open(kf.EncryptedKey, password, acct.Address[:])
	if err != nil {
		return nil, fmt.Errorf("unlock %s: %w", name, err)
	}
	defer wipe(raw)

	key, err := crypto.PrivateKeyFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("unlock %s: %w", name, err)
	}
	if key.Address() != acct.Address {
		return nil, fmt.Errorf("unlock %s: key does not match stored address", name)
	}
	return key, nil
}

// Account returns the public metadata of account name without decrypting it.
func (ks *Keystore) Account(name string) (*Account, error) {
	kf, err := ks.read(name)
	if err != nil {
		return nil, err
	}
	return kf.account(name)
}

// List returns all accounts sorted by name. Unreadable files are skipped.
func (ks *Keystore) List() ([]*Account, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var accounts []*Account
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		name := strings.TrimSuffix(e.Name(), fileExt)
		acct, err := ks.Account(name)
		if err != nil {
			continue
		}
		accounts = append(accounts, acct)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Name < accounts[j].Name })
	return accounts, nil
}

// Delete removes account name.
func (ks *Keystore) Delete(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := os.Remove(ks.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	return err
}

func (ks *Keystore) read(name string) (*keyFile, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(ks.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	if kf.Version != fileVersion {
		return nil, fmt.Errorf("unsupported key file version: %d", kf.Version)
	}
	return &kf, nil
}

func (kf *keyFile) account(name string) (*Account, error) {
	addr, err := types.ParseAddress(kf.Address)
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", name, err)
	}
	pub, err := hex.DecodeString(kf.PubKey)
	if err != nil || len(pub) != crypto.PublicKeySize {
		return nil, fmt.Errorf("key file %s: bad public key", name)
	}
	if crypto.AddressFromPubKey(pub) != addr {
		return nil, fmt.Errorf("key file %s: public key does not match address", name)
	}
	return &Account{Name: name, Address: addr, PubKey: pub, CreatedAt: kf.CreatedAt}, nil
}

func writeFile(path string, kf *keyFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
