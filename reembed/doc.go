// Package reembed re-embeds stored documents with a new or updated
// embedding model.
//
// It processes documents in batches with progress reporting, retries
// embedding calls with exponential backoff, and normalizes vectors so
// cosine similarity keeps working across model changes.
package reembed
