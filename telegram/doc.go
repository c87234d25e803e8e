// Package telegram dispatches decrypted messages to the Telegram Bot API.
//
// Delivery runs as a bounded retry state machine rather than a naive
// request: every attempt is preceded by a fixed quiescence delay, HTTP 429
// responses are retried with Retry-After or exponential backoff up to a
// budget, transport failures are retried on an independent budget, and any
// other non-2xx status is immediately terminal. The transition function is
// pure and the sleep primitive injectable, so the machine is unit-testable
// without real timers.
package telegram
