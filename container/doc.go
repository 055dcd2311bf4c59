// Package container implements the multi-vector container file: a 24-byte
// little-endian header (total vectors, total documents, dimension) followed
// by fixed-width records of (vector id int64, doc id int64, float64[dim]).
//
// Writes and reads stream through a buffer of chunk-size records so peak
// memory stays bounded regardless of corpus size. Files are write-once,
// read-many; there is no append mode and no concurrent read-while-write.
package container
