// Package model defines core types used throughout geoknn.
//
// # Identity Types
//
//   - RowID: Arena slot of a tree node (uint32, 0 is reserved as "no node")
//
// # Data Types
//
//   - Record: Latitude/longitude pair with an embedding payload and an identifier
//
// # Record Construction
//
//	rec, err := model.NewRecord(-22.2, -54.8, embedding, "dourados")
//
// The embedding must have exactly EmbeddingDim elements. Identifiers longer than
// MaxIDLen-1 bytes are truncated, never rejected.
package model
