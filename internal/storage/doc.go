// Package storage persists image entities to disk and loads them back.
//
// A Store writes an image to <dir>/<name><ext>, choosing the encoder from the
// entity's extension. Only JPEG (.jpg, .jpeg) and PNG (.png) are written;
// any other extension is rejected with ErrUnsupportedExtension before a
// file is created. Relative directories are resolved against the store
// root, so the pipeline can address "originals" and "processed" without
// knowing where the root lives.
//
// Save blocks until the file is closed. SaveAsync runs the same write on a
// new goroutine and delivers the outcome on a buffered channel, so callers
// can dispatch many writes and collect the results afterwards in any order.
//
// Cache memoizes decoded entities by path for callers, such as the MCP
// server, that repeatedly transform the same local file.
package storage
