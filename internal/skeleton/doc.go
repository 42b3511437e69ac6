// Package skeleton implements the offline materializer: it fetches a remote
// repository's tree description, filters it by glob patterns and an entry
// cap, recreates the surviving files locally as placeholders (empty or
// filled with repeating content), and regenerates the sidecar index from the
// bytes actually written so the local store is self-consistent from the
// first request onward.
package skeleton
