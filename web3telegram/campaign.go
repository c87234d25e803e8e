package web3telegram

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// DefaultMaxProtectedDataPerTask is the campaign partition size: how many
// protected data a single bulk task fans out to.
const DefaultMaxProtectedDataPerTask = 10

// PrepareTelegramCampaignParams configures the preparation of a bulk
// send: one message, one secret, many granted accesses.
type PrepareTelegramCampaignParams struct {
	GrantedAccesses         []marketplace.GrantedAccess
	TelegramContent         string
	SenderName              string
	Label                   string
	AppMaxPrice             uint64
	WorkerpoolMaxPrice      uint64
	WorkerpoolAddressOrEns  marketplace.Address
	MaxProtectedDataPerTask int
}

// PrepareTelegramCampaignResponse carries the signed bulk request, ready
// to be settled with SendTelegramCampaign.
type PrepareTelegramCampaignResponse struct {
	CampaignRequest marketplace.BulkRequest `json:"campaignRequest"`
}

// PrepareTelegramCampaign publishes the campaign content once, pushes a
// single shared requester secret and signs a bulk request spanning all
// granted accesses. No deal is settled here.
func (c *Client) PrepareTelegramCampaign(ctx context.Context, params PrepareTelegramCampaignParams) (*PrepareTelegramCampaignResponse, error) {
	resp, err := c.prepareTelegramCampaign(ctx, params)
	return resp, wrapWorkflow("Failed to prepareTelegramCampaign", err)
}

func (c *Client) prepareTelegramCampaign(ctx context.Context, params PrepareTelegramCampaignParams) (*PrepareTelegramCampaignResponse, error) {
	if len(params.GrantedAccesses) == 0 {
		return nil, validationErrorf("grantedAccesses is a required field")
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
	workerpool := marketplace.NullAddress
	if params.WorkerpoolAddressOrEns != "" {
		workerpool, err = validateAddressOrENS("workerpoolAddressOrEns", params.WorkerpoolAddressOrEns)
		if err != nil {
			return nil, err
		}
	}
	sliceSize := params.MaxProtectedDataPerTask
	if sliceSize <= 0 {
		sliceSize = DefaultMaxProtectedDataPerTask
	}

	requester, err := c.market.RequesterAddress(ctx)
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

	// Every slot of the campaign shares the same secret at index 1.
	request := marketplace.BulkRequest{
		App:                c.cfg.DappAddress,
		AppMaxPrice:        params.AppMaxPrice,
		Workerpool:         workerpool,
		WorkerpoolMaxPrice: params.WorkerpoolMaxPrice,
		Requester:          requester,
		Args:               label,
		Secrets:            map[int]string{1: secretID},
		BulkAccesses:       append([]marketplace.GrantedAccess{}, params.GrantedAccesses...),
		MaxDatasetsPerTask: sliceSize,
	}
	signed, err := c.market.SignBulkRequest(ctx, request)
	if err != nil {
		return nil, err
	}
	c.log.Info("telegram campaign prepared",
		"accesses", len(signed.BulkAccesses),
		"tasks", signed.TaskCount())

	return &PrepareTelegramCampaignResponse{CampaignRequest: signed}, nil
}

// SendTelegramCampaignParams settles a prepared campaign against a
// workerpool. AllowDeposit tops up the requester account from the wallet
// when the stake is short.
type SendTelegramCampaignParams struct {
	CampaignRequest        marketplace.BulkRequest
	WorkerpoolAddressOrEns marketplace.Address
	UseVoucher             bool
	AllowDeposit           bool
}

// SendTelegramCampaignResponse lists the tasks spawned by the settled
// campaign, one per partition slot.
type SendTelegramCampaignResponse struct {
	Tasks []marketplace.Task `json:"tasks"`
}

// SendTelegramCampaign settles a signed bulk request. The chosen
// workerpool must agree with the one the campaign was prepared for,
// unless the campaign left the workerpool unrestricted.
func (c *Client) SendTelegramCampaign(ctx context.Context, params SendTelegramCampaignParams) (*SendTelegramCampaignResponse, error) {
	resp, err := c.sendTelegramCampaign(ctx, params)
	return resp, wrapWorkflow("Failed to sendTelegramCampaign", err)
}

func (c *Client) sendTelegramCampaign(ctx context.Context, params SendTelegramCampaignParams) (*SendTelegramCampaignResponse, error) {
	request := params.CampaignRequest
	if len(request.BulkAccesses) == 0 {
		return nil, validationErrorf("campaignRequest is a required field")
	}
	if request.Sign == "" {
		return nil, validationErrorf("campaignRequest must be signed")
	}

	workerpool := c.cfg.DefaultWorkerpool
	if params.WorkerpoolAddressOrEns != "" {
		var err error
		workerpool, err = validateAddressOrENS("workerpoolAddressOrEns", params.WorkerpoolAddressOrEns)
		if err != nil {
			return nil, err
		}
	}
	if !request.Workerpool.IsNull() && !request.Workerpool.Equal(workerpool) {
		return nil, &ValidationError{Message: "workerpoolAddressOrEns doesn't match campaignRequest workerpool"}
	}

	if params.UseVoucher {
		requester, err := c.market.RequesterAddress(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := c.checkUserVoucher(ctx, requester); err != nil {
			return nil, err
		}
	}

	tasks, err := c.market.ProcessBulkRequest(ctx, marketplace.ProcessBulkParams{
		Request:      request,
		Workerpool:   workerpool,
		AllowDeposit: params.AllowDeposit,
	})
	if err != nil {
		return nil, err
	}
	if len(tasks) != request.TaskCount() {
		return nil, errors.New("marketplace returned an unexpected task count")
	}
	c.log.Info("telegram campaign submitted", "tasks", len(tasks))

	return &SendTelegramCampaignResponse{Tasks: tasks}, nil
}
