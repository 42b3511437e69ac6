// Package server wires the hub engine into a Fiber application: a manual
// path dispatcher (repository ids contain slashes), byte-range parsing and
// streaming for file downloads, the paths-info and repo-info JSON endpoints,
// and the request-id/access-log middleware.
package server
