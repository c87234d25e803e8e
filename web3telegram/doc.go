// Package web3telegram implements the sender-side SDK of the confidential
// Telegram dispatch pipeline.
//
// A Client encrypts message content, publishes it to content-addressed
// storage, resolves admissible marketplace orders under price ceilings and
// voucher sponsorship, submits matched deals and plans bulk campaigns. The
// recipient chat identifier and the message body are never exposed to the
// marketplace or the compute provider.
//
// Failures are classified in two layers: a ProtocolError (marketplace,
// chain or storage infrastructure unreachable) is always surfaced
// verbatim, while business failures are wrapped in a WorkflowError with a
// stable top-level message and the original cause.
package web3telegram
