package exactevm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// eip3009ABIJSON covers the token surface the exact scheme touches:
// balance lookup, authorization state, and the settlement call itself.
const eip3009ABIJSON = `[
  {
    "name": "balanceOf",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "account", "type": "address" }
    ],
    "outputs": [
      { "name": "", "type": "uint256" }
    ]
  },
  {
    "name": "authorizationState",
    "type": "function",
    "stateMutability": "view",
    "inputs": [
      { "name": "authorizer", "type": "address" },
      { "name": "nonce", "type": "bytes32" }
    ],
    "outputs": [
      { "name": "", "type": "bool" }
    ]
  },
  {
    "name": "transferWithAuthorization",
    "type": "function",
    "stateMutability": "nonpayable",
    "inputs": [
      { "name": "from", "type": "address" },
      { "name": "to", "type": "address" },
      { "name": "value", "type": "uint256" },
      { "name": "validAfter", "type": "uint256" },
      { "name": "validBefore", "type": "uint256" },
      { "name": "nonce", "type": "bytes32" },
      { "name": "v", "type": "uint8" },
      { "name": "r", "type": "bytes32" },
      { "name": "s", "type": "bytes32" }
    ],
    "outputs": []
  }
]`

var eip3009ABI abi.ABI

func init() {
	var err error
	eip3009ABI, err = abi.JSON(strings.NewReader(eip3009ABIJSON))
	if err != nil {
		panic(err)
	}
}
