// Package gtdb builds the ground-truth object database used for GT-AUG
// sampling augmentation.
//
// Build splits a dataset into contiguous slices, extracts the points inside
// every annotated box of every frame in parallel, writes them as recentred
// blobs and merges the per-slice indices into one class-keyed index with
// globally unique group ids. Summarize runs the same extraction without
// writing anything. Dataset-specific behaviour (output naming, object
// subsampling, class vocabulary) is looked up per Family.
package gtdb
