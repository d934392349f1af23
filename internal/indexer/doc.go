// Package indexer keeps a store collection synchronized with a folder of PDF
// documents.
//
// # Sync
//
// A sync run scans the data source for *.pdf files (recursively, sorted),
// hashes each one, and compares the digest with the persisted file index:
//
//	unchanged hash  -> skipped
//	no index entry  -> new, ingested
//	different hash  -> modified, its old chunks deleted and re-ingested
//
// Files are processed one at a time in path order. A file that fails to
// read or ingest is logged and counted; its index entry is left as it was so
// the next run retries it. The index is written after every ingested file,
// so an interrupted run loses at most the file in flight.
//
//	s := indexer.New(indexer.Config{
//	    DataSource: "./data_source",
//	    IndexFile:  "vector_store_index.json",
//	}, manager, store)
//
//	summary, err := s.Sync(ctx)
//	// summary.New, summary.Updated, summary.Skipped, summary.Failed
//
// # Index file
//
// The index is a JSON object keyed by absolute path:
//
//	{
//	  "/data/aws/security.pdf": {
//	    "hash": "9f2c...",
//	    "size": 1048576,
//	    "modified_time": 1717430400.25,
//	    "ingested_at": "2025-03-01T12:00:00Z",
//	    "document_title": "security",
//	    "chunks_created": 42,
//	    "category": "technical",
//	    "doc_type": "documentation",
//	    "tags": ["aws", "cloud"]
//	  }
//	}
//
// A missing or malformed index is treated as empty.
//
// # Concurrency
//
// Runs are serialized by IndexLock. Sync returns ErrSyncInProgress rather
// than waiting when another run holds the lock. The Watcher relies on this:
// a debounced sync that finds the lock taken schedules exactly one
// follow-up run.
package indexer
