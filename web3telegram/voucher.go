package web3telegram

import (
	"context"
	"errors"
	"time"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// checkUserVoucher fetches the requester's voucher and rejects unusable
// ones before any order is resolved.
func (c *Client) checkUserVoucher(ctx context.Context, requester marketplace.Address) (*marketplace.UserVoucher, error) {
	if c.vouchers == nil {
		return nil, errors.New("Oops, it seems your wallet is not associated with any voucher. Check on https://builder.iex.ec/")
	}
	voucher, err := c.vouchers.ShowUserVoucher(ctx, requester)
	if err != nil {
		if errors.Is(err, marketplace.ErrNoVoucher) {
			return nil, errors.New("Oops, it seems your wallet is not associated with any voucher. Check on https://builder.iex.ec/")
		}
		return nil, err
	}
	if voucher.ExpiredAt(time.Now()) {
		return nil, errors.New("Oops, it seems your voucher has expired. You might want to ask for a top up. Check on https://builder.iex.ec/")
	}
	if voucher.Balance == 0 {
		return nil, errors.New("Oops, it seems your voucher is empty. You might want to ask for a top up. Check on https://builder.iex.ec/")
	}
	return voucher, nil
}
