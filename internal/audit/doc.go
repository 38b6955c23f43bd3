// Package audit defines the structured audit event model and the asynchronous
// dispatcher that forwards events to a host-provided sink.
//
// Dispatch is decoupled from the calling flow: events are buffered on a
// channel and delivered by a single background goroutine, so a slow sink
// cannot stall a sign-in. On Close the buffer is drained before the goroutine
// exits.
//
// # What this package must NOT do
//
//   - Block an engine operation on sink latency (beyond the buffered send).
//   - Record password material or token contents in event metadata.
package audit
