// Package registry owns the merged, cached model catalog. Reads are
// served lock-free from an immutable snapshot published via an atomic
// pointer swap; refresh fans out to all adapters concurrently, merges
// the results off to the side, and publishes a new snapshot only when at
// least one adapter succeeds. An in-flight refresh is shared between
// concurrent callers so one round of upstream calls serves them all.
package registry
