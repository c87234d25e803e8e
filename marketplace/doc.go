// Package marketplace defines the data model and client interfaces for the
// iExec decentralized marketplace as seen by the web3telegram pipeline.
//
// The marketplace itself (order signing, on-chain settlement, voucher
// accounting) is an external collaborator: this package only models its
// published orders, granted accesses, vouchers, deals and tasks, and the
// operations the SDK invokes against it. Implementations provided here:
//
//   - APIClient: orderbook lookups against the marketplace REST API
//   - MockClient: deterministic in-memory implementation for tests and the
//     demo gateway
//   - PostgresOrderStore / MemoryOrderStore: order persistence for the demo
//     market gateway
//
// All price amounts are expressed in nRLC (integer, no fractions).
package marketplace
