// Package persist wraps a single store commit with optimistic-concurrency
// conflict detection, bounded retries, and exponential backoff.
//
// A [Retrier] manages exactly one entity type. When a commit fails with a
// [ConflictError] for that entity, the retrier hands the store's authoritative
// values to the operation's Rebase hook and re-applies the commit. Conflicts
// on any other entity type are propagated immediately as fatal.
//
// # What this package must NOT do
//
//   - Perform I/O itself: all store interaction happens inside the Op.
//   - Retry without bound: the attempt ceiling is always enforced.
package persist
