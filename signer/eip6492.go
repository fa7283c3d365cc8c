package signer

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// eip6492Magic is the 32-byte suffix marking a wrapped smart-account
// signature per EIP-6492.
var eip6492Magic = common.Hex2Bytes("6492649264926492649264926492649264926492649264926492649264926492")

const erc1271ABIJSON = `[
  {
    "name": "isValidSignature",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "hash", "type": "bytes32" },
      { "name": "signature", "type": "bytes" }
    ],
    "outputs": [
      { "name": "magicValue", "type": "bytes4" }
    ]
  }
]`

var (
	erc1271ABI   abi.ABI
	erc1271Magic = [4]byte{0x16, 0x26, 0xba, 0x7e}

	wrapperArgs abi.Arguments
)

func init() {
	var err error
	erc1271ABI, err = abi.JSON(strings.NewReader(erc1271ABIJSON))
	if err != nil {
		panic(err)
	}

	addressTy, _ := abi.NewType("address", "", nil)
	bytesTy, _ := abi.NewType("bytes", "", nil)
	wrapperArgs = abi.Arguments{
		{Name: "factory", Type: addressTy},
		{Name: "factoryCalldata", Type: bytesTy},
		{Name: "signature", Type: bytesTy},
	}
}

// Is6492 reports whether a signature carries the EIP-6492 magic suffix.
func Is6492(signature []byte) bool {
	return len(signature) >= len(eip6492Magic) &&
		bytes.Equal(signature[len(signature)-len(eip6492Magic):], eip6492Magic)
}

// Unwrap6492 extracts the inner signature from an EIP-6492 wrapper.
// The signature is returned unchanged when it is not wrapped.
func Unwrap6492(signature []byte) (inner []byte, wrapped bool) {
	if !Is6492(signature) {
		return signature, false
	}

	values, err := wrapperArgs.Unpack(signature[:len(signature)-len(eip6492Magic)])
	if err != nil || len(values) != 3 {
		return signature, false
	}

	sig, ok := values[2].([]byte)
	if !ok {
		return signature, false
	}
	return sig, true
}

// Wrap6492 builds an EIP-6492 wrapped signature. Used by tests to
// exercise the unwrap path.
func Wrap6492(factory common.Address, factoryCalldata, signature []byte) ([]byte, error) {
	packed, err := wrapperArgs.Pack(factory, factoryCalldata, signature)
	if err != nil {
		return nil, err
	}
	return append(packed, eip6492Magic...), nil
}
