package exactevm

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/openpay-labs/x402-facilitator/types"
)

// Authorization mirrors the EIP-3009 TransferWithAuthorization message.
type Authorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`       // uint256, decimal string
	ValidAfter  string `json:"validAfter"`  // uint256 unix timestamp
	ValidBefore string `json:"validBefore"` // uint256 unix timestamp
	Nonce       string `json:"nonce"`       // bytes32, hex string
}

// Payload is the exact-scheme body carried inside PaymentPayload.
type Payload struct {
	Signature     string        `json:"signature"`
	Authorization Authorization `json:"authorization"`
}

// decodePayload lifts the opaque payload map into the exact-scheme
// shape via a JSON round trip.
func decodePayload(p *types.PaymentPayload) (*Payload, error) {
	raw, err := json.Marshal(p.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var out Payload
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode exact payload: %w", err)
	}

	if out.Signature == "" || out.Authorization.From == "" {
		return nil, fmt.Errorf("exact payload missing signature or authorization")
	}
	return &out, nil
}

func (a *Authorization) value() (*big.Int, error) {
	v, ok := new(big.Int).SetString(a.Value, 10)
	if !ok {
		return nil, fmt.Errorf("bad authorization value %q", a.Value)
	}
	return v, nil
}

func (a *Authorization) window() (validAfter, validBefore *big.Int, err error) {
	validAfter, ok := new(big.Int).SetString(a.ValidAfter, 10)
	if !ok {
		return nil, nil, fmt.Errorf("bad validAfter %q", a.ValidAfter)
	}
	validBefore, ok = new(big.Int).SetString(a.ValidBefore, 10)
	if !ok {
		return nil, nil, fmt.Errorf("bad validBefore %q", a.ValidBefore)
	}
	return validAfter, validBefore, nil
}

func (a *Authorization) nonce32() ([32]byte, error) {
	var out [32]byte
	b, err := hex.DecodeString(strings.TrimPrefix(a.Nonce, "0x"))
	if err != nil {
		return out, fmt.Errorf("bad nonce hex: %w", err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("nonce length %d, want 32", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func decodeSignature(sigHex string) ([]byte, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("bad signature hex: %w", err)
	}
	if len(sig) < 65 {
		return nil, fmt.Errorf("signature length %d, want at least 65", len(sig))
	}
	return sig, nil
}

// splitSignature decomposes a 65-byte signature into the v, r, s form
// transferWithAuthorization expects, normalizing v to 27/28.
func splitSignature(sig []byte) (v uint8, r [32]byte, s [32]byte, err error) {
	if len(sig) != 65 {
		err = fmt.Errorf("signature length %d, want 65", len(sig))
		return
	}
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v = sig[64]
	if v < 27 {
		v += 27
	}
	return
}
