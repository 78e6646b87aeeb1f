// Package testutil provides testing utilities for geoknn.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random records, computing exact
// nearest neighbors, and verifying search recall.
//
// # Random Record Generation
//
//	rng := testutil.NewRNG(seed)
//	recs := rng.UniformRecords(1000, testutil.World)
//	recs := rng.ClusteredRecords(1000, 8, 0.5, testutil.World)
//
// # Exact Search (Ground Truth)
//
//	results := testutil.ExactTopK(probe, recs, k)
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exactResults, approxResults)
package testutil
