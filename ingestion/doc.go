// Package ingestion converts scraper review feeds into stored,
// embedded documents.
//
// A Pipeline validates each feed record, maps it onto the document
// metadata schema, and upserts it with a deterministic content-derived
// ID, so re-ingesting a feed is idempotent. Embedding runs
// asynchronously on a worker pool; call Wait before querying if the
// vectors must be in place.
//
//	pipeline, err := ingestion.NewPipeline(documents, provider)
//	if err != nil {
//		return err
//	}
//	defer pipeline.Release()
//
//	added, err := pipeline.Ingest(ctx, records...)
//	if err != nil {
//		return err
//	}
//	pipeline.Wait()
package ingestion
