package marketplace

import "context"

// DatasetOrderbookQuery selects published dataset orders. Orders are
// matched if they name the dataset and are unrestricted or restricted to
// the given app and requester.
type DatasetOrderbookQuery struct {
	Dataset   Address
	App       Address
	Requester Address
}

// AppOrderbookQuery selects published app orders by tag and workerpool
// restriction.
type AppOrderbookQuery struct {
	App        Address
	Workerpool Address
	MinTag     Tag
	MaxTag     Tag
}

// WorkerpoolOrderbookQuery selects published workerpool orders.
// RequesterStrict limits results to orders restricted to the requester
// (used with vouchers, where only user-specific orders are sponsorable).
type WorkerpoolOrderbookQuery struct {
	Workerpool      Address
	App             Address
	Dataset         Address
	Requester       Address
	RequesterStrict bool
	MinTag          Tag
	MaxTag          Tag
	Category        uint
}

// Orderbook looks up published orders. Results are sorted by ascending
// price; equal prices keep publication order.
type Orderbook interface {
	FetchDatasetOrderbook(ctx context.Context, q DatasetOrderbookQuery) ([]PublishedDatasetOrder, error)
	FetchAppOrderbook(ctx context.Context, q AppOrderbookQuery) ([]PublishedAppOrder, error)
	FetchWorkerpoolOrderbook(ctx context.Context, q WorkerpoolOrderbookQuery) ([]PublishedWorkerpoolOrder, error)
}

// MatchRequest bundles the four orders submitted for settlement.
type MatchRequest struct {
	AppOrder        AppOrder
	DatasetOrder    DatasetOrder
	WorkerpoolOrder WorkerpoolOrder
	RequestOrder    RequestOrder
	UseVoucher      bool
}

// ProcessBulkParams dispatches a prepared bulk request against a
// workerpool. AllowDeposit lets the marketplace top up the requester
// account from the wallet if the stake is short.
type ProcessBulkParams struct {
	Request      BulkRequest
	Workerpool   Address
	AllowDeposit bool
}

// Marketplace is the on-chain collaborator: wallet identity, order
// signing and settlement. Implementations must return *ProtocolError for
// infrastructure-level failures so callers can re-surface them verbatim.
type Marketplace interface {
	// RequesterAddress returns the wallet address orders are signed with.
	RequesterAddress(ctx context.Context) (Address, error)

	// SignRequestOrder fills the salt and signature of a request order.
	SignRequestOrder(ctx context.Context, order RequestOrder) (RequestOrder, error)

	// MatchOrders submits the matched orders and returns the settled deal.
	// Side effects on success: one unit of the dataset order's volume is
	// consumed and, if UseVoucher is set, the voucher balance decreases.
	MatchOrders(ctx context.Context, req MatchRequest) (*Deal, error)

	// SignBulkRequest signs a campaign bulk request once for all slots.
	SignBulkRequest(ctx context.Context, req BulkRequest) (BulkRequest, error)

	// ProcessBulkRequest settles a bulk request, yielding one task per
	// partition slot.
	ProcessBulkRequest(ctx context.Context, params ProcessBulkParams) ([]Task, error)
}

// SecretStore pushes requester secrets to the secret management service
// consumed by confidential tasks.
type SecretStore interface {
	PushRequesterSecret(ctx context.Context, name, value string) error
}

// VoucherRegistry exposes sponsorship vouchers. ShowUserVoucher returns
// ErrNoVoucher when the owner has none.
type VoucherRegistry interface {
	ShowUserVoucher(ctx context.Context, owner Address) (*UserVoucher, error)
}
