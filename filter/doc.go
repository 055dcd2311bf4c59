// Package filter parses and evaluates boolean filter expressions over int64
// row fields, for example `doc == 3` or `doc >= 10 and not (id < 5)`.
//
// Parsed expressions evaluate against a row, render back to a canonical
// expression accepted by Milvus, and translate to parameterized SQL.
package filter
