package web3telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"
)

// ContentStore publishes encrypted blobs to content-addressed storage.
// storage.Client satisfies it.
type ContentStore interface {
	Add(ctx context.Context, data []byte) (string, error)
}

// ProtectedDataIndex checks protected-data schemas against the
// dataprotector subgraph. SubgraphClient satisfies it.
type ProtectedDataIndex interface {
	IsValidProtectedData(ctx context.Context, dataset marketplace.Address) (bool, error)
}

// Config holds the client-side deployment parameters. Zero fields are
// filled from the chain defaults of Config.ChainID.
type Config struct {
	ChainID           uint64
	DappAddress       marketplace.Address
	WhitelistAddress  marketplace.Address
	DefaultWorkerpool marketplace.Address
}

// Deps are the external collaborators a Client operates against.
type Deps struct {
	Marketplace marketplace.Marketplace
	Orderbook   marketplace.Orderbook
	Secrets     marketplace.SecretStore
	Vouchers    marketplace.VoucherRegistry
	Storage     ContentStore
	Index       ProtectedDataIndex
	Logger      *slog.Logger
}

// Client is the web3telegram SDK entrypoint.
type Client struct {
	cfg       Config
	market    marketplace.Marketplace
	orderbook marketplace.Orderbook
	secrets   marketplace.SecretStore
	vouchers  marketplace.VoucherRegistry
	storage   ContentStore
	index     ProtectedDataIndex
	log       *slog.Logger
}

// NewClient builds a Client, filling configuration gaps from the chain
// defaults and rejecting missing collaborators up front.
func NewClient(cfg Config, deps Deps) (*Client, error) {
	if cfg.ChainID == 0 {
		cfg.ChainID = BellecourChainID
	}
	if defaults, ok := DefaultChainConfig(cfg.ChainID); ok {
		if cfg.DappAddress == "" {
			cfg.DappAddress = defaults.DappAddress
		}
		if cfg.WhitelistAddress == "" {
			cfg.WhitelistAddress = defaults.WhitelistAddress
		}
		if cfg.DefaultWorkerpool == "" {
			cfg.DefaultWorkerpool = defaults.DefaultWorkerpool
		}
	}

	var missing []string
	if cfg.DappAddress == "" {
		missing = append(missing, "dappAddress")
	}
	if cfg.WhitelistAddress == "" {
		missing = append(missing, "whitelistAddress")
	}
	if cfg.DefaultWorkerpool == "" {
		missing = append(missing, "defaultWorkerpool")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration for chainId %d: %v", cfg.ChainID, missing)
	}

	switch {
	case deps.Marketplace == nil:
		return nil, fmt.Errorf("marketplace client is required")
	case deps.Orderbook == nil:
		return nil, fmt.Errorf("orderbook client is required")
	case deps.Secrets == nil:
		return nil, fmt.Errorf("secret store is required")
	case deps.Storage == nil:
		return nil, fmt.Errorf("content store is required")
	case deps.Index == nil:
		return nil, fmt.Errorf("protected data index is required")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		cfg:       cfg,
		market:    deps.Marketplace,
		orderbook: deps.Orderbook,
		secrets:   deps.Secrets,
		vouchers:  deps.Vouchers,
		storage:   deps.Storage,
		index:     deps.Index,
		log:       log,
	}, nil
}
