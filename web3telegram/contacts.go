package web3telegram

import (
	"context"
	"sort"
	"strings"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// Contact is a protected data the user has been granted access to, i.e.
// someone the user can send a telegram to.
type Contact struct {
	Address              marketplace.Address `json:"address"`
	Owner                marketplace.Address `json:"owner"`
	AccessGrantTimestamp string              `json:"accessGrantTimestamp"`
	AccessPrice          uint64              `json:"accessPrice"`
	RemainingAccess      uint                `json:"remainingAccess"`
	IsUserStrict         bool                `json:"isUserStrict"`
}

// ContactFilters tunes a contact listing. IsUserStrict drops grants open
// to any requester, keeping only user-specific ones. BulkOnly keeps
// grants with enough remaining volume for campaign use.
type ContactFilters struct {
	IsUserStrict bool
	BulkOnly     bool
}

// FetchContactsParams selects whose contacts to list.
type FetchContactsParams struct {
	UserAddress marketplace.Address
	ContactFilters
}

// FetchMyContacts lists the contacts of the signer wallet.
func (c *Client) FetchMyContacts(ctx context.Context, filters ContactFilters) ([]Contact, error) {
	requester, err := c.market.RequesterAddress(ctx)
	if err != nil {
		return nil, wrapWorkflow("Failed to fetch my contacts", err)
	}
	contacts, err := c.fetchContacts(ctx, requester, filters)
	return contacts, wrapWorkflow("Failed to fetch my contacts", err)
}

// FetchUserContacts lists the contacts of an arbitrary user address.
func (c *Client) FetchUserContacts(ctx context.Context, params FetchContactsParams) ([]Contact, error) {
	user, err := validateAddress("userAddress", params.UserAddress)
	if err != nil {
		return nil, wrapWorkflow("Failed to fetch user contacts", err)
	}
	contacts, err := c.fetchContacts(ctx, user, params.ContactFilters)
	return contacts, wrapWorkflow("Failed to fetch user contacts", err)
}

// fetchContacts merges the grants published for the dapp and for its
// whitelist, keeping the oldest grant per protected data.
func (c *Client) fetchContacts(ctx context.Context, user marketplace.Address, filters ContactFilters) ([]Contact, error) {
	forApp, err := c.orderbook.FetchDatasetOrderbook(ctx, marketplace.DatasetOrderbookQuery{
		Dataset:   marketplace.AnyDataset,
		App:       c.cfg.DappAddress,
		Requester: user,
	})
	if err != nil {
		return nil, err
	}
	forWhitelist, err := c.orderbook.FetchDatasetOrderbook(ctx, marketplace.DatasetOrderbookQuery{
		Dataset:   marketplace.AnyDataset,
		App:       c.cfg.WhitelistAddress,
		Requester: user,
	})
	if err != nil {
		return nil, err
	}

	merged := append(append([]marketplace.PublishedDatasetOrder{}, forApp...), forWhitelist...)
	byDataset := make(map[marketplace.Address]Contact, len(merged))
	for _, po := range merged {
		strict := po.Order.RequesterRestrict.Equal(user)
		if filters.IsUserStrict && !strict {
			continue
		}
		if filters.BulkOnly && po.Remaining <= 1 {
			continue
		}
		contact := Contact{
			Address:              po.Order.Dataset,
			Owner:                po.Signer,
			AccessGrantTimestamp: po.PublicationTimestamp,
			AccessPrice:          po.Order.DatasetPrice,
			RemainingAccess:      po.Remaining,
			IsUserStrict:         strict,
		}
		key := marketplace.Address(strings.ToLower(string(contact.Address)))
		existing, seen := byDataset[key]
		if !seen || contact.AccessGrantTimestamp < existing.AccessGrantTimestamp {
			byDataset[key] = contact
		}
	}

	contacts := make([]Contact, 0, len(byDataset))
	for _, contact := range byDataset {
		contacts = append(contacts, contact)
	}
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].AccessGrantTimestamp != contacts[j].AccessGrantTimestamp {
			return contacts[i].AccessGrantTimestamp < contacts[j].AccessGrantTimestamp
		}
		return contacts[i].Address < contacts[j].Address
	})
	return contacts, nil
}
