package ethereum

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Signer wraps a go-ethereum ECDSA private key. Messages are hashed with the
// Ethereum Signed Message prefix (keccak256) before signing, so any EIP-191
// aware verifier can check the resulting signatures.
type Signer ecdsa.PrivateKey

// NewSigner generates a fresh ECDSA private key.
func NewSigner() (*Signer, error) {
	s, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return (*Signer)(s), nil
}

// NewSignerFromHex loads an ECDSA private key from its hex encoding.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	s, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("could not decode private key: %w", err)
	}
	return (*Signer)(s), nil
}

// Address returns the Ethereum address derived from the signer public key.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.PublicKey)
}

// Sign hashes the message with the Ethereum prefix and signs the digest.
func (s *Signer) Sign(msg []byte) (*ECDSASignature, error) {
	raw, err := ethcrypto.Sign(HashMessage(msg), (*ecdsa.PrivateKey)(s))
	if err != nil {
		return nil, fmt.Errorf("could not sign message: %w", err)
	}
	// raw is r || s || v, 65 bytes
	return &ECDSASignature{
		R:        new(big.Int).SetBytes(raw[:32]),
		S:        new(big.Int).SetBytes(raw[32:64]),
		recovery: raw[64],
	}, nil
}

// HashMessage performs a keccak256 hash over the data adding the Ethereum
// Signed Message prefix.
func HashMessage(data []byte) []byte {
	return ethcrypto.Keccak256(fmt.Appendf(nil, "%s%d%s", SigningPrefix, len(data), data))
}
