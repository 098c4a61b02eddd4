// Package pipeline runs batches of images through acquire, transform and
// persist stages while keeping every output tied to its source image.
//
// # Stages
//
// A run moves through Requested, Fetching, Transforming, Persisting and
// Done. Individual items that fail along the way end in Skipped (fetch) or
// are counted as transform or persist failures; a failing item never stops
// its siblings.
//
//  1. Fetching: the Source is searched once, every record is given a
//     sequence index 1..N before any download starts, and all downloads run
//     concurrently. Each download writes into its own slot, so the fetched
//     batch is already in index order when the downloads finish.
//  2. Transforming: every fetched buffer is copied into a Task and handed to
//     a fixed pool of workers over a channel. Workers share nothing and
//     return a Result tagged with the same index. Results arrive in
//     completion order and are sorted by index; this sort is the only place
//     batch order is reconstructed.
//  3. Persisting: each result (and, optionally, each original) is written
//     through the Sink's non-blocking save. Writes are independent because
//     file names come from the image names.
//
// A batch whose fetch stage produces no images ends after a warning with
// Report.Empty set; it is not an error.
//
// # Concurrency
//
// Fetch and persist fan-out uses errgroup.Group without cancellation, since
// per-item errors are recorded rather than returned. The transform pool has
// Workers goroutines (default runtime.NumCPU()). Image entities are
// immutable, so no locks guard them.
package pipeline
