package types

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Network is a CAIP-2 network identifier, e.g. "eip155:84532".
type Network string

const (
	NetworkBase        Network = "eip155:8453"
	NetworkBaseSepolia Network = "eip155:84532"
	NetworkPolygon     Network = "eip155:137"
	NetworkPolygonAmoy Network = "eip155:80002"
)

func (n Network) String() string {
	return string(n)
}

// IsEVM reports whether the network belongs to the eip155 namespace.
func (n Network) IsEVM() bool {
	return strings.HasPrefix(string(n), "eip155:")
}

// ChainID extracts the numeric chain id from an eip155 identifier.
func (n Network) ChainID() (*big.Int, error) {
	ref, ok := strings.CutPrefix(string(n), "eip155:")
	if !ok {
		return nil, fmt.Errorf("network %s is not an eip155 network", n)
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("network %s has a non-numeric chain reference", n)
	}
	return big.NewInt(id), nil
}
