package marketplace

import (
	"strings"
	"time"
)

// Address is a lowercase hex Ethereum address or an ENS name.
type Address string

// NullAddress is the zero address, used by order restriction fields to
// mean "unrestricted".
const NullAddress Address = "0x0000000000000000000000000000000000000000"

// AnyDataset is the orderbook wildcard matching orders for every dataset.
const AnyDataset Address = "any"

// Equal compares two addresses case-insensitively.
func (a Address) Equal(b Address) bool {
	return strings.EqualFold(string(a), string(b))
}

// IsNull reports whether the address is empty or the zero address.
func (a Address) IsNull() bool {
	return a == "" || a.Equal(NullAddress)
}

// Tag is the set of execution requirements attached to an order, for
// example ["tee", "scone"] for confidential execution.
type Tag []string

// TeeScone is the confidential-computing tag required by web3telegram
// tasks. Orders whose tag does not exactly match are inadmissible.
var TeeScone = Tag{"tee", "scone"}

// Equal reports whether two tags contain exactly the same entries,
// regardless of order.
func (t Tag) Equal(other Tag) bool {
	if len(t) != len(other) {
		return false
	}
	set := make(map[string]bool, len(t))
	for _, e := range t {
		set[e] = true
	}
	for _, e := range other {
		if !set[e] {
			return false
		}
	}
	return true
}

// DatasetOrder is a signed offer to supply a protected dataset.
type DatasetOrder struct {
	Dataset            Address `json:"dataset"`
	DatasetPrice       uint64  `json:"datasetprice"`
	Volume             uint    `json:"volume"`
	Tag                Tag     `json:"tag"`
	AppRestrict        Address `json:"apprestrict"`
	WorkerpoolRestrict Address `json:"workerpoolrestrict"`
	RequesterRestrict  Address `json:"requesterrestrict"`
	Salt               string  `json:"salt"`
	Sign               string  `json:"sign"`
}

// AppOrder is a signed offer to supply an application.
type AppOrder struct {
	App                Address `json:"app"`
	AppPrice           uint64  `json:"appprice"`
	Volume             uint    `json:"volume"`
	Tag                Tag     `json:"tag"`
	DatasetRestrict    Address `json:"datasetrestrict"`
	WorkerpoolRestrict Address `json:"workerpoolrestrict"`
	RequesterRestrict  Address `json:"requesterrestrict"`
	Salt               string  `json:"salt"`
	Sign               string  `json:"sign"`
}

// WorkerpoolOrder is a signed offer to supply compute.
type WorkerpoolOrder struct {
	Workerpool        Address `json:"workerpool"`
	WorkerpoolPrice   uint64  `json:"workerpoolprice"`
	Volume            uint    `json:"volume"`
	Tag               Tag     `json:"tag"`
	Category          uint    `json:"category"`
	Trust             uint    `json:"trust"`
	AppRestrict       Address `json:"apprestrict"`
	DatasetRestrict   Address `json:"datasetrestrict"`
	RequesterRestrict Address `json:"requesterrestrict"`
	Salt              string  `json:"salt"`
	Sign              string  `json:"sign"`
}

// OrderMeta is the publication envelope the orderbook wraps every order in.
type OrderMeta struct {
	OrderHash            string  `json:"orderHash"`
	ChainID              uint64  `json:"chainId"`
	Remaining            uint    `json:"remaining"`
	Status               string  `json:"status"`
	Signer               Address `json:"signer"`
	PublicationTimestamp string  `json:"publicationTimestamp"`
}

// PublishedDatasetOrder is a dataset order as returned by the orderbook.
type PublishedDatasetOrder struct {
	OrderMeta
	Order DatasetOrder `json:"order"`
}

// PublishedAppOrder is an app order as returned by the orderbook.
type PublishedAppOrder struct {
	OrderMeta
	Order AppOrder `json:"order"`
}

// PublishedWorkerpoolOrder is a workerpool order as returned by the
// orderbook.
type PublishedWorkerpoolOrder struct {
	OrderMeta
	Order WorkerpoolOrder `json:"order"`
}

// GrantedAccess is a data owner's signed authorization permitting an
// application (or whitelist) to consume their protected dataset. It is
// structurally a dataset order; the marketplace decrements its remaining
// volume once per matched deal.
type GrantedAccess = DatasetOrder

// UserVoucher is a prepaid sponsorship account. Balance and sponsorship
// sets are read-only here; only deal settlement mutates them.
type UserVoucher struct {
	Owner                Address   `json:"owner"`
	Address              Address   `json:"address"`
	Balance              uint64    `json:"balance"`
	ExpirationTimestamp  int64     `json:"expirationTimestamp"`
	SponsoredApps        []Address `json:"sponsoredApps"`
	SponsoredDatasets    []Address `json:"sponsoredDatasets"`
	SponsoredWorkerpools []Address `json:"sponsoredWorkerpools"`
}

// SponsorsWorkerpool reports whether the voucher sponsors the given
// workerpool address.
func (v *UserVoucher) SponsorsWorkerpool(addr Address) bool {
	for _, wp := range v.SponsoredWorkerpools {
		if wp.Equal(addr) {
			return true
		}
	}
	return false
}

// ExpiredAt reports whether the voucher is expired at the given instant.
func (v *UserVoucher) ExpiredAt(now time.Time) bool {
	return v.ExpirationTimestamp <= now.Unix()
}

// RequestParams carries the execution parameters embedded in a request
// order: injected requester secrets (by index) and optional arguments.
type RequestParams struct {
	Secrets map[int]string `json:"iexec_secrets,omitempty"`
	Args    string         `json:"iexec_args,omitempty"`
}

// RequestOrder is the buyer-signed order naming the chosen app, dataset
// and workerpool with their price ceilings. Immutable once signed.
type RequestOrder struct {
	App                Address       `json:"app"`
	AppMaxPrice        uint64        `json:"appmaxprice"`
	Dataset            Address       `json:"dataset"`
	DatasetMaxPrice    uint64        `json:"datasetmaxprice"`
	Workerpool         Address       `json:"workerpool"`
	WorkerpoolMaxPrice uint64        `json:"workerpoolmaxprice"`
	Requester          Address       `json:"requester"`
	Volume             uint          `json:"volume"`
	Category           uint          `json:"category"`
	Tag                Tag           `json:"tag"`
	Params             RequestParams `json:"params"`
	Salt               string        `json:"salt"`
	Sign               string        `json:"sign"`
}

// BulkRequest is an aggregate request order spanning many granted
// accesses, sharing one set of requester secrets and partitioned into
// tasks of at most MaxDatasetsPerTask datasets each.
type BulkRequest struct {
	App                Address         `json:"app"`
	AppMaxPrice        uint64          `json:"appmaxprice"`
	Workerpool         Address         `json:"workerpool"`
	WorkerpoolMaxPrice uint64          `json:"workerpoolmaxprice"`
	Requester          Address         `json:"requester"`
	Args               string          `json:"args,omitempty"`
	Secrets            map[int]string  `json:"secrets,omitempty"`
	BulkAccesses       []GrantedAccess `json:"bulkAccesses"`
	MaxDatasetsPerTask int             `json:"maxDatasetsPerTask"`
	Salt               string          `json:"salt"`
	Sign               string          `json:"sign"`
}

// TaskCount returns the number of tasks the bulk request partitions into.
func (b *BulkRequest) TaskCount() int {
	if b.MaxDatasetsPerTask <= 0 || len(b.BulkAccesses) == 0 {
		return 0
	}
	return (len(b.BulkAccesses) + b.MaxDatasetsPerTask - 1) / b.MaxDatasetsPerTask
}

// DealID identifies an on-chain deal (0x-prefixed 32-byte hex).
type DealID string

// TaskID identifies a task spawned by a deal (0x-prefixed 32-byte hex).
type TaskID string

// Deal is the settlement result of matched orders.
type Deal struct {
	DealID DealID `json:"dealid"`
	Volume uint   `json:"volume"`
}

// Task describes one unit of confidential work spawned by a deal.
// BulkIndex is 0 for single sends and the partition slot for campaigns.
type Task struct {
	TaskID    TaskID `json:"taskId"`
	DealID    DealID `json:"dealId"`
	BulkIndex int    `json:"bulkIndex"`
}
