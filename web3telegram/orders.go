package web3telegram

import (
	"context"
	"errors"
	"sync"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// Order selection failures. Raised when no published order fits the
// caller's ceilings; these are workflow errors, not protocol errors.
var (
	ErrNoDatasetOrder           = errors.New("No Dataset order found for the desired price")
	ErrNoAppOrder               = errors.New("No App order found for the desired price")
	ErrNoWorkerpoolOrder        = errors.New("No Workerpool order found for the desired price")
	ErrNoSponsoredWorkerpoolOrd = errors.New("No Workerpool order found sponsored by your voucher for the desired price")
)

// orderCeilings are the caller's maximum accepted prices per resource
// kind, in nRLC.
type orderCeilings struct {
	data       uint64
	app        uint64
	workerpool uint64
}

// resolvedOrders is one admissible order per resource kind, ready for
// matching.
type resolvedOrders struct {
	dataset    marketplace.DatasetOrder
	app        marketplace.AppOrder
	workerpool marketplace.WorkerpoolOrder
}

// resolveOrders queries the marketplace for dataset, app and workerpool
// orders and selects one admissible order per kind. The five orderbook
// lookups are issued concurrently; selection happens after the join.
func (c *Client) resolveOrders(
	ctx context.Context,
	requester marketplace.Address,
	dataset marketplace.Address,
	workerpool marketplace.Address,
	ceilings orderCeilings,
	useVoucher bool,
	voucher *marketplace.UserVoucher,
) (*resolvedOrders, error) {
	var (
		wg sync.WaitGroup

		datasetForApp       *marketplace.DatasetOrder
		datasetForWhitelist *marketplace.DatasetOrder
		appOrder            *marketplace.AppOrder
		wpForApp            []marketplace.PublishedWorkerpoolOrder
		wpForWhitelist      []marketplace.PublishedWorkerpoolOrder

		errs [5]error
	)

	fetchDataset := func(app marketplace.Address, out **marketplace.DatasetOrder, errSlot *error) {
		defer wg.Done()
		orders, err := c.orderbook.FetchDatasetOrderbook(ctx, marketplace.DatasetOrderbookQuery{
			Dataset:   dataset,
			App:       app,
			Requester: requester,
		})
		if err != nil {
			*errSlot = err
			return
		}
		// The orderbook is price-sorted, the first order under the
		// ceiling is the cheapest.
		for i := range orders {
			if orders[i].Order.DatasetPrice <= ceilings.data {
				*out = &orders[i].Order
				return
			}
		}
	}

	fetchWorkerpools := func(app marketplace.Address, out *[]marketplace.PublishedWorkerpoolOrder, errSlot *error) {
		defer wg.Done()
		orders, err := c.orderbook.FetchWorkerpoolOrderbook(ctx, marketplace.WorkerpoolOrderbookQuery{
			Workerpool: workerpool,
			App:        app,
			Dataset:    dataset,
			Requester:  requester,
			// With a voucher only user-specific orders are sponsorable.
			RequesterStrict: useVoucher,
			MinTag:          marketplace.TeeScone,
			MaxTag:          marketplace.TeeScone,
			Category:        0,
		})
		if err != nil {
			*errSlot = err
			return
		}
		*out = orders
	}

	wg.Add(5)
	go fetchDataset(c.cfg.DappAddress, &datasetForApp, &errs[0])
	go fetchDataset(c.cfg.WhitelistAddress, &datasetForWhitelist, &errs[1])
	go func() {
		defer wg.Done()
		orders, err := c.orderbook.FetchAppOrderbook(ctx, marketplace.AppOrderbookQuery{
			App:        c.cfg.DappAddress,
			Workerpool: workerpool,
			MinTag:     marketplace.TeeScone,
			MaxTag:     marketplace.TeeScone,
		})
		if err != nil {
			errs[2] = err
			return
		}
		for i := range orders {
			if orders[i].Order.AppPrice <= ceilings.app {
				appOrder = &orders[i].Order
				return
			}
		}
	}()
	go fetchWorkerpools(c.cfg.DappAddress, &wpForApp, &errs[3])
	go fetchWorkerpools(c.cfg.WhitelistAddress, &wpForWhitelist, &errs[4])
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Prefer the app-restricted dataset order, fall back to the
	// whitelist-restricted one.
	datasetOrder := datasetForApp
	if datasetOrder == nil {
		datasetOrder = datasetForWhitelist
	}
	if datasetOrder == nil {
		return nil, ErrNoDatasetOrder
	}

	if appOrder == nil {
		return nil, ErrNoAppOrder
	}

	merged := append(append([]marketplace.PublishedWorkerpoolOrder{}, wpForApp...), wpForWhitelist...)
	workerpoolOrder := FilterWorkerpoolOrders(merged, ceilings.workerpool, useVoucher, voucher)
	if workerpoolOrder == nil {
		if useVoucher {
			return nil, ErrNoSponsoredWorkerpoolOrd
		}
		return nil, ErrNoWorkerpoolOrder
	}

	return &resolvedOrders{
		dataset:    *datasetOrder,
		app:        *appOrder,
		workerpool: *workerpoolOrder,
	}, nil
}

// FilterWorkerpoolOrders returns the cheapest admissible workerpool order
// or nil if none qualifies. Without a voucher an order is admissible when
// its price is at most maxPrice. With a voucher the order must either be
// sponsored (its workerpool is in the voucher's sponsored set) or the
// out-of-pocket remainder after the voucher balance must fit under
// maxPrice. Equal prices keep orderbook enumeration order.
func FilterWorkerpoolOrders(
	orders []marketplace.PublishedWorkerpoolOrder,
	maxPrice uint64,
	useVoucher bool,
	voucher *marketplace.UserVoucher,
) *marketplace.WorkerpoolOrder {
	var best *marketplace.WorkerpoolOrder
	for i := range orders {
		order := &orders[i].Order
		if !workerpoolOrderAdmissible(order, maxPrice, useVoucher, voucher) {
			continue
		}
		if best == nil || order.WorkerpoolPrice < best.WorkerpoolPrice {
			best = order
		}
	}
	return best
}

func workerpoolOrderAdmissible(order *marketplace.WorkerpoolOrder, maxPrice uint64, useVoucher bool, voucher *marketplace.UserVoucher) bool {
	if !useVoucher {
		return order.WorkerpoolPrice <= maxPrice
	}
	if voucher == nil {
		return false
	}
	if voucher.SponsorsWorkerpool(order.Workerpool) {
		return true
	}
	// Not sponsored: the caller pays the remainder above the voucher
	// balance out of pocket, which must fit under the ceiling.
	remainder := uint64(0)
	if order.WorkerpoolPrice > voucher.Balance {
		remainder = order.WorkerpoolPrice - voucher.Balance
	}
	return remainder <= maxPrice
}
