// Package bench drives MaxSim ranking over a query set: it times each query,
// reads and writes ground-truth files, scores recall and summarizes a run as
// a YAML report.
package bench
