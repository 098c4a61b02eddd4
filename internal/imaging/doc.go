// Package imaging provides the image entity and the pixel-level transforms
// applied by the pipeline.
//
// An Image pairs an 8-bit sample buffer with its identity: a sequence
// index, a name that accumulates transformation suffixes, a file extension,
// the source URL and passthrough tags. Buffers are row-major Arrays of rank
// 2 (grayscale) or rank 3 with three trailing channels (color). New inspects
// the rank once and tags the entity with its Kind; operations switch on that
// tag rather than re-inspecting the buffer.
//
// # Immutability
//
// Images never change after construction. New copies its input, accessors
// return copies, and every transform (Convolve, ToGrayscale, ToColor,
// Gamma.Apply, Add, Sub) returns a new Image. Images can be handed to any
// number of goroutines without synchronization.
//
// # Coordinate System
//
// Samples are addressed as (row, col, channel) with (0,0) at the top-left
// corner. Rows increase downward and columns rightward.
//
// # Sample Range
//
// Samples are always in [0, 255]. Every transform computes in float64 or
// int and clips with ClampUint8 before storing.
//
// # Buffer-Level Functions
//
// ConvolveArray, Luma, Expand and Gamma.ApplyArray work on bare Arrays.
// The pipeline's worker pool uses them so that only plain buffers cross
// goroutine boundaries.
package imaging
