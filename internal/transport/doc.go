// Package transport issues the widget's backend requests: the
// send-message exchange (single-shot JSON or server-sent event stream),
// the fire-and-forget rating report, the contact-form submission, and
// the remote widget-settings fetch.
//
// # Exchanges
//
// Dispatch posts the outgoing message with a stream-request marker. The
// response is treated as streaming when it is successful and declares a
// text/event-stream content type; anything else is parsed as a
// single-shot reply:
//
//	ex, err := client.Dispatch(ctx, transport.OutboundMessage{...})
//	if ex.Streaming {
//		err = ex.Stream(func(ev transport.Event) { ... })
//	} else {
//		switch r := ex.Reply.(type) { ... }
//	}
//
// Stream events are blank-line delimited; only "data: " lines carry JSON
// payloads, and malformed payloads are dropped without aborting the
// stream. Single-shot bodies parse into a closed set of reply kinds
// (Success, QuotaExceeded, ServerError, Unrecognized) so callers match
// exhaustively instead of probing fields.
package transport
