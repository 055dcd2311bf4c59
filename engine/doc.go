// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections and registering the vector
// scalar functions vec_ip, vec_l2 and vec_cosine over float64 BLOBs.
// It keeps a thin surface so backends share the same driver instance.
package engine
