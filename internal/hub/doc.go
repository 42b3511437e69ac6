// Package hub implements the file-resolution and metadata core of the fake
// hub: repository coordinate resolution, deterministic tree walking, dual
// sha1/sha256 digest computation with a validated sidecar cache, and the
// paths-info synthesizer that composes the above into client-facing records.
// HTTP routing and the skeleton pipeline depend on this package; nothing in
// here touches the network.
package hub
