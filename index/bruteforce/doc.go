// Package bruteforce provides an exact vector index that answers kNN queries
// by scanning every accepted vector and ranking by the configured metric.
// Ties keep insertion order, so the lowest position wins.
package bruteforce
