// Package page is the root scope of one connected chat page.
//
// A Page owns everything that must die with the page: the host message bus,
// the host bridge state, the session machine, the rendered widget timeline
// and pending confirmations. Tool calls reach a page through the Hub.
//
// Ordering:
//   - Host envelopes are delivered in order by the page bus
//   - TRANSACTION_HELP before a ready session is deferred, never dropped
//   - Stop cancels agent requests and leaves confirmations pending
//
// Example Usage:
//
//	p := page.New(page.Options{Origins: origins, Sink: conn, Agent: client})
//	hub.Register(p)
//	p.Start(token)
//	defer p.Close()
package page
