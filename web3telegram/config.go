package web3telegram

import "github.com/iExecBlockchainComputing/web3telegram-sdk/marketplace"

// BellecourChainID is the iExec sidechain the dapp is deployed on.
const BellecourChainID uint64 = 134

// ChainConfig holds the per-chain deployment defaults.
type ChainConfig struct {
	DappAddress       marketplace.Address
	WhitelistAddress  marketplace.Address
	DefaultWorkerpool marketplace.Address
	SubgraphURL       string
	IPFSUploadURL     string
	IPFSGateway       string
}

var chainDefaults = map[uint64]ChainConfig{
	BellecourChainID: {
		DappAddress:       "0x8b0011bdbdfa1b78809fb1df4dc55f4d56704186", // web3telegram.apps.iexec.eth
		WhitelistAddress:  "0xe006677cbe2a1acd9c586260a37c35a06277c1b6",
		DefaultWorkerpool: "prod-v8-bellecour.main.pools.iexec.eth",
		SubgraphURL:       "https://thegraph-product.iex.ec/subgraphs/name/bellecour/dataprotector-v2",
		IPFSUploadURL:     "https://ipfs-upload.v8-bellecour.iex.ec",
		IPFSGateway:       "https://ipfs-gateway.v8-bellecour.iex.ec",
	},
}

// DefaultChainConfig returns the deployment defaults for a chain id.
func DefaultChainConfig(chainID uint64) (ChainConfig, bool) {
	cfg, ok := chainDefaults[chainID]
	return cfg, ok
}

// Default desired order prices: the dapp, data and workerpool are
// expected to be free unless the caller raises the ceilings.
const (
	DefaultDataMaxPrice       uint64 = 0
	DefaultAppMaxPrice        uint64 = 0
	DefaultWorkerpoolMaxPrice uint64 = 0
)
