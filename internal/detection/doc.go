// Package detection provides gradient-based feature detectors for image
// entities.
//
// Two detectors are implemented on top of the convolution engine in the
// imaging package:
//
//   - Edges: Sobel gradient magnitude, normalized so the strongest edge is 255
//   - Corners: Harris structure-tensor response with thresholding,
//     non-maximum suppression and marker rendering
//
// # Algorithm Overview
//
// Both detectors follow the same pipeline:
//
//  1. Luminance: convert the input to a single grayscale plane
//  2. Gradients: correlate with 3×3 Sobel kernels on the unclipped float path,
//     so negative and >255 responses keep their true dynamic range
//  3. Reduction: combine the gradients into a magnitude (edges) or a
//     smoothed structure tensor and response map (corners)
//  4. Output: quantize back to 8 bits, or mark the surviving corners on a
//     color copy of the input
//
// # Coordinate System
//
// Corner positions are (Row, Col) pairs with (0, 0) at the top-left corner.
// Corners are always returned in row-major order.
//
// # Borders
//
// Gradients use the zero padding of the convolution engine. Gaussian
// smoothing of the structure tensor reflects the plane about its edges, and
// the non-maximum suppression window is clipped at the border.
//
// # Performance Considerations
//
// Both detectors are O(H·W) with small constants, except Gaussian smoothing
// which is O(H·W·σ) thanks to separable passes. For large batches, run them
// through the pipeline's worker pool.
package detection
