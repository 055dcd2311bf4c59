// Package maxsim ranks multi-vector documents against a multi-vector query
// by late-interaction (MaxSim) scoring: for every query vector take the best
// inner product against any document vector, then sum over query vectors.
//
// Two strategies implement Ranker. InMemory scores decoded documents
// directly. Delegated asks a backend for the per-token maximum with one
// filtered top-1 search per (document, query vector) pair, issued serially
// so per-query latency reflects real round trips.
package maxsim
