// Package ingestion turns uploaded documents into indexed vectors.
//
// The Orchestrator drives one document through extraction, chunking and
// embedding, recording every status change on the document. The Scheduler
// cuts the chunk sequence into batches and embeds and upserts them with
// bounded concurrency, retrying rate-limited batches with exponential
// backoff. The Pipeline runs ingestion as detached background work on ants
// worker pools so uploads return as soon as the document record exists.
//
// Processing failures never surface to the uploader. They are recorded in
// the document's status and message.
package ingestion
