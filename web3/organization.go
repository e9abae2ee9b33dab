package web3

import (
	"context"
	"fmt"

	bind "github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/davinci-sdk/types"
)

// CreateOrganization creates a new organization in the OrganizationRegistry
// contract, with the configured account as its only administrator. It
// returns the transaction hash of the creation submission.
func (c *Contracts) CreateOrganization(ctx context.Context, orgInfo *types.OrganizationInfo) (common.Hash, error) {
	txOpts, err := c.authTransactOpts(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	tx, err := c.organizations.CreateOrganization(txOpts, orgInfo.Name, orgInfo.MetadataURI, []common.Address{c.signer.Address()})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create organization: %w", err)
	}
	return tx.Hash(), nil
}

// Organization returns the organization with the given address from the
// OrganizationRegistry contract.
func (c *Contracts) Organization(ctx context.Context, address common.Address) (*types.OrganizationInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	org, err := c.organizations.GetOrganization(&bind.CallOpts{Context: ctx}, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &types.OrganizationInfo{
		ID:          address,
		Name:        org.Name,
		MetadataURI: org.MetadataURI,
	}, nil
}
