// Package postgres provides PostgreSQL implementations of the store
// interfaces. Chunk embeddings are stored in a pgvector column and queried
// with the `<->` distance operator.
package postgres
