// Package catapi is the acquisition client for TheCatAPI image search.
//
// A Client performs two calls: Search, which asks the service for up to N
// random image records with breed information, and Fetch, which downloads
// one image URL and decodes it into an 8-bit sample buffer. Both take a
// context and are safe for concurrent use; the pipeline calls Fetch from
// many goroutines at once.
//
// # Request Format
//
// Search issues
//
//	GET {base}/images/search?size=low&mime_types=jpg&format=json&has_breeds=true&order=RANDOM&page=0&limit=L
//
// where L is the requested count capped at 25. The API key, when
// configured, is sent on every request in the x-api-key header. Responses
// longer than the requested count are truncated.
//
// # Errors
//
// Transport failures, non-2xx statuses and undecodable bodies are returned
// as errors. The client never retries; the pipeline treats a failed Fetch
// as a skipped item.
package catapi
