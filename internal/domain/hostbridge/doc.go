// Package hostbridge handles the cross-document message protocol between the
// page and the embedding native host.
//
// Every inbound envelope passes an origin allow-list and a shape check before
// any of its fields are used. Failing either check drops the envelope.
//
// Key Components:
//   - OriginPolicy: Exact-match origin allow-list
//   - ParseMessage: Closed union of SET_TOKEN, SET_CONTEXT, TRANSACTION_HELP, TOKEN_RECEIVED
//   - Bus: Page-scoped synchronous message channel
//   - Bridge: Token and context state fed by the bus
//   - BestEffortSender: Fire-and-forget delivery back to the host
package hostbridge
