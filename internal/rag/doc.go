// Package rag implements retrieval-augmented generation: documents are cut
// into overlapping chunks, embedded, and stored; questions are answered by
// retrieving the nearest chunks and prompting the model with them as
// context.
package rag
