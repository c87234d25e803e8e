package web3telegram

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// SendTelegramParams configures a single confidential telegram send.
// Price ceilings are in nRLC and default to zero.
type SendTelegramParams struct {
	ProtectedData          marketplace.Address
	TelegramContent        string
	SenderName             string
	Label                  string
	DataMaxPrice           uint64
	AppMaxPrice            uint64
	WorkerpoolMaxPrice     uint64
	WorkerpoolAddressOrEns marketplace.Address
	UseVoucher             bool
}

// SendTelegramResponse carries the task spawned by a successful send.
type SendTelegramResponse struct {
	TaskID marketplace.TaskID `json:"taskId"`
}

// SendTelegram encrypts and publishes the telegram content, resolves one
// admissible order per resource kind, pushes the requester secret and
// settles the deal. The returned task id is the handle for the eventual
// delivery.
func (c *Client) SendTelegram(ctx context.Context, params SendTelegramParams) (*SendTelegramResponse, error) {
	resp, err := c.sendTelegram(ctx, params)
	return resp, wrapWorkflow("Failed to sendTelegram", err)
}

func (c *Client) sendTelegram(ctx context.Context, params SendTelegramParams) (*SendTelegramResponse, error) {
	dataset, err := validateAddress("protectedData", params.ProtectedData)
	if err != nil {
		return nil, err
	}
	content, err := validateTelegramContent(params.TelegramContent)
	if err != nil {
		return nil, err
	}
	senderName, err := validateSenderName(params.SenderName)
	if err != nil {
		return nil, err
	}
	label, err := validateLabel(params.Label)
	if err != nil {
		return nil, err
	}
	workerpool := c.cfg.DefaultWorkerpool
	if params.WorkerpoolAddressOrEns != "" {
		workerpool, err = validateAddressOrENS("workerpoolAddressOrEns", params.WorkerpoolAddressOrEns)
		if err != nil {
			return nil, err
		}
	}

	if err := c.checkProtectedData(ctx, dataset); err != nil {
		return nil, err
	}

	requester, err := c.market.RequesterAddress(ctx)
	if err != nil {
		return nil, err
	}

	var voucher *marketplace.UserVoucher
	if params.UseVoucher {
		voucher, err = c.checkUserVoucher(ctx, requester)
		if err != nil {
			return nil, err
		}
	}

	orders, err := c.resolveOrders(ctx, requester, dataset, workerpool, orderCeilings{
		data:       params.DataMaxPrice,
		app:        params.AppMaxPrice,
		workerpool: params.WorkerpoolMaxPrice,
	}, params.UseVoucher, voucher)
	if err != nil {
		return nil, err
	}

	published, err := c.publishContent(ctx, content)
	if err != nil {
		return nil, err
	}
	secret, err := encodeRequesterSecret(senderName, published)
	if err != nil {
		return nil, err
	}
	secretID := uuid.NewString()
	if err := c.secrets.PushRequesterSecret(ctx, secretID, secret); err != nil {
		return nil, err
	}
	c.log.Debug("pushed requester secret", "secretId", secretID)

	// Max prices echo the resolved order prices so the match cannot be
	// outbid between resolution and settlement.
	order := marketplace.RequestOrder{
		App:                orders.app.App,
		AppMaxPrice:        orders.app.AppPrice,
		Dataset:            orders.dataset.Dataset,
		DatasetMaxPrice:    orders.dataset.DatasetPrice,
		Workerpool:         orders.workerpool.Workerpool,
		WorkerpoolMaxPrice: orders.workerpool.WorkerpoolPrice,
		Requester:          requester,
		Volume:             1,
		Category:           0,
		Tag:                marketplace.TeeScone,
		Params: marketplace.RequestParams{
			Secrets: map[int]string{1: secretID},
			Args:    label,
		},
	}
	signed, err := c.market.SignRequestOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	deal, err := c.market.MatchOrders(ctx, marketplace.MatchRequest{
		AppOrder:        orders.app,
		DatasetOrder:    orders.dataset,
		WorkerpoolOrder: orders.workerpool,
		RequestOrder:    signed,
		UseVoucher:      params.UseVoucher,
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("telegram task submitted", "dealId", deal.DealID)

	taskID, err := marketplace.ComputeTaskID(deal.DealID, 0)
	if err != nil {
		return nil, fmt.Errorf("computing task id for deal %s: %w", deal.DealID, err)
	}
	return &SendTelegramResponse{TaskID: taskID}, nil
}
