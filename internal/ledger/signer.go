// signer.go — Injected signing capability.
//
// Nothing in this module discovers a wallet from ambient/global state; any
// function that needs to sign receives a Signer explicitly. The platform's
// own signing authority (used for admin onboarding) is an ed25519 keypair
// loaded from a key file.
package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
)

// Signer is the capability required to execute ledger writes.
type Signer interface {
	// Address returns the ledger account address of the signing identity.
	Address() string
	// Sign produces a signature over data.
	Sign(data []byte) ([]byte, error)
}

// KeyfileSigner signs with an ed25519 private key loaded from disk.
type KeyfileSigner struct {
	address string
	key     ed25519.PrivateKey
}

var _ Signer = (*KeyfileSigner)(nil)

// keyfile is the exported keypair format: the account address plus the
// base64-encoded 32-byte ed25519 seed.
type keyfile struct {
	Address    string `json:"address"`
	PrivateKey string `json:"privateKey"`
}

// LoadKeyfileSigner reads the platform keypair from path.
func LoadKeyfileSigner(path string) (*KeyfileSigner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signer keyfile: %w", err)
	}
	var kf keyfile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("parse signer keyfile: %w", err)
	}
	if kf.Address == "" {
		return nil, fmt.Errorf("signer keyfile missing address")
	}
	seed, err := base64.StdEncoding.DecodeString(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode signer private key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signer private key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &KeyfileSigner{address: kf.Address, key: ed25519.NewKeyFromSeed(seed)}, nil
}

// Address returns the platform account address.
func (s *KeyfileSigner) Address() string { return s.address }

// Sign signs data with the platform key.
func (s *KeyfileSigner) Sign(data []byte) ([]byte, error) {
	return ed25519.Sign(s.key, data), nil
}
