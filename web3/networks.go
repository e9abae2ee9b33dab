package web3

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultAddresses contains the registry contract addresses of the known
// DaVinci deployments, keyed by network short name.
var DefaultAddresses = map[string]Addresses{
	"sep": {
		ProcessRegistry:      common.HexToAddress("0xdecC4F656BE4C96617af7EeEaD0042a8855Fee9c"),
		OrganizationRegistry: common.HexToAddress("0x218Ca677d701f535A239b1d4a4db2384CE81f371"),
	},
}

// AddressesForNetwork returns the contract addresses of a known deployment.
func AddressesForNetwork(network string) (*Addresses, error) {
	addresses, ok := DefaultAddresses[network]
	if !ok {
		return nil, fmt.Errorf("no known deployment on network %q", network)
	}
	return &addresses, nil
}
