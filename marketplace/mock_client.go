package marketplace

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"sync"

	"golang.org/x/crypto/sha3"
)

// MockClient is a deterministic in-memory implementation of Orderbook,
// Marketplace, SecretStore and VoucherRegistry for tests and the demo
// gateway. Published orders are filtered and price-sorted the way the
// real orderbook API behaves; deals get reproducible identifiers derived
// from a match counter.
type MockClient struct {
	mu sync.Mutex

	Requester        Address
	DatasetOrders    []PublishedDatasetOrder
	AppOrders        []PublishedAppOrder
	WorkerpoolOrders []PublishedWorkerpoolOrder
	Vouchers         map[Address]*UserVoucher
	Secrets          map[string]string

	// Recorded side effects.
	Matched   []MatchRequest
	Processed []ProcessBulkParams

	// MatchErr, when set, is returned by MatchOrders and
	// ProcessBulkRequest verbatim (e.g. to simulate insufficient stake).
	MatchErr error

	matchCount uint64
}

// NewMockClient creates an empty mock marketplace for the given requester
// wallet.
func NewMockClient(requester Address) *MockClient {
	return &MockClient{
		Requester: requester,
		Vouchers:  make(map[Address]*UserVoucher),
		Secrets:   make(map[string]string),
	}
}

// FetchDatasetOrderbook implements Orderbook.
func (m *MockClient) FetchDatasetOrderbook(ctx context.Context, q DatasetOrderbookQuery) ([]PublishedDatasetOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PublishedDatasetOrder
	for _, po := range m.DatasetOrders {
		o := po.Order
		if q.Dataset != AnyDataset && !o.Dataset.Equal(q.Dataset) {
			continue
		}
		if !o.AppRestrict.IsNull() && !o.AppRestrict.Equal(q.App) {
			continue
		}
		if !o.RequesterRestrict.IsNull() && !o.RequesterRestrict.Equal(q.Requester) {
			continue
		}
		if po.Remaining == 0 {
			continue
		}
		out = append(out, po)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order.DatasetPrice < out[j].Order.DatasetPrice
	})
	return out, nil
}

// FetchAppOrderbook implements Orderbook.
func (m *MockClient) FetchAppOrderbook(ctx context.Context, q AppOrderbookQuery) ([]PublishedAppOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PublishedAppOrder
	for _, po := range m.AppOrders {
		o := po.Order
		if !o.App.Equal(q.App) {
			continue
		}
		if !tagWithin(o.Tag, q.MinTag, q.MaxTag) {
			continue
		}
		if !o.WorkerpoolRestrict.IsNull() && !o.WorkerpoolRestrict.Equal(q.Workerpool) {
			continue
		}
		if po.Remaining == 0 {
			continue
		}
		out = append(out, po)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order.AppPrice < out[j].Order.AppPrice
	})
	return out, nil
}

// FetchWorkerpoolOrderbook implements Orderbook.
func (m *MockClient) FetchWorkerpoolOrderbook(ctx context.Context, q WorkerpoolOrderbookQuery) ([]PublishedWorkerpoolOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PublishedWorkerpoolOrder
	for _, po := range m.WorkerpoolOrders {
		o := po.Order
		if q.Workerpool != "" && !o.Workerpool.Equal(q.Workerpool) {
			continue
		}
		if !o.AppRestrict.IsNull() && !o.AppRestrict.Equal(q.App) {
			continue
		}
		if !o.DatasetRestrict.IsNull() && !o.DatasetRestrict.Equal(q.Dataset) {
			continue
		}
		if q.RequesterStrict {
			if !o.RequesterRestrict.Equal(q.Requester) {
				continue
			}
		} else if !o.RequesterRestrict.IsNull() && !o.RequesterRestrict.Equal(q.Requester) {
			continue
		}
		if !tagWithin(o.Tag, q.MinTag, q.MaxTag) {
			continue
		}
		if o.Category != q.Category {
			continue
		}
		if po.Remaining == 0 {
			continue
		}
		out = append(out, po)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order.WorkerpoolPrice < out[j].Order.WorkerpoolPrice
	})
	return out, nil
}

// RequesterAddress implements Marketplace.
func (m *MockClient) RequesterAddress(ctx context.Context) (Address, error) {
	return m.Requester, nil
}

// SignRequestOrder implements Marketplace with a deterministic fake
// signature.
func (m *MockClient) SignRequestOrder(ctx context.Context, order RequestOrder) (RequestOrder, error) {
	order.Requester = m.Requester
	order.Salt = "0x" + hex.EncodeToString(mockDigest([]byte("salt"), []byte(order.App), []byte(order.Dataset)))
	order.Sign = "0x" + hex.EncodeToString(mockDigest([]byte("sign"), []byte(order.Salt)))
	return order, nil
}

// MatchOrders implements Marketplace. The dataset order's remaining
// volume is decremented, mirroring on-chain settlement.
func (m *MockClient) MatchOrders(ctx context.Context, req MatchRequest) (*Deal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MatchErr != nil {
		return nil, m.MatchErr
	}

	m.matchCount++
	m.Matched = append(m.Matched, req)
	m.consumeDatasetVolume(req.DatasetOrder.Dataset)

	return &Deal{DealID: m.dealID(m.matchCount), Volume: 1}, nil
}

// SignBulkRequest implements Marketplace.
func (m *MockClient) SignBulkRequest(ctx context.Context, req BulkRequest) (BulkRequest, error) {
	req.Requester = m.Requester
	req.Salt = "0x" + hex.EncodeToString(mockDigest([]byte("bulk-salt"), []byte(req.App), []byte(req.Workerpool)))
	req.Sign = "0x" + hex.EncodeToString(mockDigest([]byte("bulk-sign"), []byte(req.Salt)))
	return req, nil
}

// ProcessBulkRequest implements Marketplace, yielding one task per
// partition slot of the bulk request.
func (m *MockClient) ProcessBulkRequest(ctx context.Context, params ProcessBulkParams) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.MatchErr != nil {
		return nil, m.MatchErr
	}

	m.matchCount++
	m.Processed = append(m.Processed, params)
	for _, access := range params.Request.BulkAccesses {
		m.consumeDatasetVolume(access.Dataset)
	}

	dealID := m.dealID(m.matchCount)
	tasks := make([]Task, 0, params.Request.TaskCount())
	for i := 0; i < params.Request.TaskCount(); i++ {
		taskID, err := ComputeTaskID(dealID, i)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, Task{TaskID: taskID, DealID: dealID, BulkIndex: i})
	}
	return tasks, nil
}

// PushRequesterSecret implements SecretStore.
func (m *MockClient) PushRequesterSecret(ctx context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Secrets[name] = value
	return nil
}

// ShowUserVoucher implements VoucherRegistry.
func (m *MockClient) ShowUserVoucher(ctx context.Context, owner Address) (*UserVoucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Vouchers[owner]
	if !ok {
		return nil, ErrNoVoucher
	}
	return v, nil
}

// PublishDatasetOrder adds a dataset order to the mock orderbook.
func (m *MockClient) PublishDatasetOrder(order DatasetOrder, remaining uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DatasetOrders = append(m.DatasetOrders, PublishedDatasetOrder{
		OrderMeta: OrderMeta{Remaining: remaining, Status: "open"},
		Order:     order,
	})
}

// PublishAppOrder adds an app order to the mock orderbook.
func (m *MockClient) PublishAppOrder(order AppOrder, remaining uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AppOrders = append(m.AppOrders, PublishedAppOrder{
		OrderMeta: OrderMeta{Remaining: remaining, Status: "open"},
		Order:     order,
	})
}

// PublishWorkerpoolOrder adds a workerpool order to the mock orderbook.
func (m *MockClient) PublishWorkerpoolOrder(order WorkerpoolOrder, remaining uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WorkerpoolOrders = append(m.WorkerpoolOrders, PublishedWorkerpoolOrder{
		OrderMeta: OrderMeta{Remaining: remaining, Status: "open"},
		Order:     order,
	})
}

func (m *MockClient) consumeDatasetVolume(dataset Address) {
	for i := range m.DatasetOrders {
		if m.DatasetOrders[i].Order.Dataset.Equal(dataset) && m.DatasetOrders[i].Remaining > 0 {
			m.DatasetOrders[i].Remaining--
			return
		}
	}
}

func (m *MockClient) dealID(n uint64) DealID {
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], n)
	return DealID("0x" + hex.EncodeToString(mockDigest([]byte("deal"), seed[:])))
}

func mockDigest(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func tagWithin(tag, minTag, maxTag Tag) bool {
	if len(minTag) > 0 {
		set := make(map[string]bool, len(tag))
		for _, e := range tag {
			set[e] = true
		}
		for _, e := range minTag {
			if !set[e] {
				return false
			}
		}
	}
	if len(maxTag) > 0 {
		allowed := make(map[string]bool, len(maxTag))
		for _, e := range maxTag {
			allowed[e] = true
		}
		for _, e := range tag {
			if !allowed[e] {
				return false
			}
		}
	}
	return true
}
