// Package mcp implements the Model Context Protocol (MCP) server for docstore.
//
// The server exposes the document store to AI assistants as tools:
//
//   - vector_store_add, vector_store_search, vector_store_info,
//     vector_store_reset: raw access to a collection
//   - document_ingest, document_search, document_list, document_categories:
//     titled, categorized documents split into chunks
//   - pdf_ingest_file, pdf_ingest_url, pdf_ingest_preset: PDF ingestion
//   - sync_documents, sync_status: incremental sync of the data source folder
//   - list_local_folder, read_local_folder: read-only local folder access
//
// When the vector store is disabled only the two local folder tools are
// registered.
//
// # Transports
//
// The default transport is stdio: JSON-RPC 2.0 messages on stdin and stdout.
// Logs therefore go to stderr. The sse transport serves the same tools over
// HTTP on the configured port:
//
//	docstore serve --transport sse --port 8000
//
// # Results
//
// Every tool answers with indented JSON text. Operation failures reported by
// the store or the document manager keep their structured body and are
// flagged with isError:
//
//	{
//	  "success": false,
//	  "error": "Content and document title are required"
//	}
//
// # Errors
//
// Invalid parameters are rejected before any work is done with a JSON-RPC
// error:
//
//   - -32602: missing or malformed parameter, reset without confirm=true,
//     local folder path that does not exist or is not a directory
//   - -32603: unexpected internal failure
//   - -32002: sync_documents called while another sync is running
//
// # Example: document_ingest
//
//	Request:
//	{
//	  "name": "document_ingest",
//	  "arguments": {
//	    "content": "Rotate credentials every 90 days...",
//	    "title": "Security Policy",
//	    "category": "business",
//	    "doc_type": "policy",
//	    "tags": ["security", "compliance"]
//	  }
//	}
//
//	Response:
//	{
//	  "success": true,
//	  "message": "Added 1 documents to collection 'documents'",
//	  "collection": "documents",
//	  "document_count": 1,
//	  "collection_total": 1,
//	  "document_title": "Security Policy",
//	  "category": "business",
//	  "doc_type": "policy",
//	  "total_text_length": 35,
//	  "chunks_created": 1,
//	  "safe_document_id": "security_policy"
//	}
package mcp
