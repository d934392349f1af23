package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docstore-mcp/internal/documents"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string, def int) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description, "default": def, "minimum": 1}
}

func boolProp(description string, def bool) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description, "default": def}
}

func stringArrayProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": description,
		"items":       map[string]interface{}{"type": "string"},
	}
}

func objectSchema(props map[string]interface{}, required ...string) mcp.ToolInputSchema {
	return mcp.ToolInputSchema{Type: "object", Properties: props, Required: required}
}

func collectionProp() map[string]interface{} {
	return stringProp("Collection name; defaults to the configured collection")
}

func categoryNames() []string {
	names := make([]string, 0, len(documents.DocumentCategories))
	for c := range documents.DocumentCategories {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

func listLocalFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_local_folder",
		Description: "List the files and directories of a local folder",
		InputSchema: objectSchema(map[string]interface{}{
			"path": stringProp("Folder path; a leading ~ is expanded to the home directory"),
		}, "path"),
	}
}

func readLocalFolderTool() mcp.Tool {
	return mcp.Tool{
		Name:        "read_local_folder",
		Description: "Read every source file under a local folder, each preceded by its relative path",
		InputSchema: objectSchema(map[string]interface{}{
			"path": stringProp("Folder path; a leading ~ is expanded to the home directory"),
		}, "path"),
	}
}

func vectorStoreAddTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vector_store_add",
		Description: "Embed texts and add them to a vector store collection",
		InputSchema: objectSchema(map[string]interface{}{
			"texts": stringArrayProp("Texts to add"),
			"ids":   stringArrayProp("Optional ids, one per text"),
			"metadatas": map[string]interface{}{
				"type":        "array",
				"description": "Optional metadata objects, one per text",
				"items":       map[string]interface{}{"type": "object"},
			},
			"collection": collectionProp(),
		}, "texts"),
	}
}

func vectorStoreSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vector_store_search",
		Description: "Find the entries nearest to a query in a vector store collection",
		InputSchema: objectSchema(map[string]interface{}{
			"query":             stringProp("Search text"),
			"n_results":         intProp("Maximum number of results", 5),
			"collection":        collectionProp(),
			"include_distances": boolProp("Include distance and similarity_score for each hit", true),
		}, "query"),
	}
}

func vectorStoreInfoTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vector_store_info",
		Description: "Describe a collection and list every collection in the store",
		InputSchema: objectSchema(map[string]interface{}{
			"collection": collectionProp(),
		}),
	}
}

func vectorStoreResetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "vector_store_reset",
		Description: "Delete every entry of a collection. Requires confirm=true.",
		InputSchema: objectSchema(map[string]interface{}{
			"collection": collectionProp(),
			"confirm":    boolProp("Must be true to reset the collection", false),
		}, "confirm"),
	}
}

func documentIngestTool() mcp.Tool {
	return mcp.Tool{
		Name:        "document_ingest",
		Description: "Chunk a titled document and add it to the vector store",
		InputSchema: objectSchema(map[string]interface{}{
			"content":     stringProp("Full document text"),
			"title":       stringProp("Document title"),
			"source_type": map[string]interface{}{"type": "string", "enum": documents.SourceTypes, "default": documents.DefaultSourceType},
			"category":    map[string]interface{}{"type": "string", "enum": categoryNames(), "default": documents.DefaultCategory},
			"doc_type":    map[string]interface{}{"type": "string", "default": documents.DefaultDocType},
			"tags":        stringArrayProp("Labels stored with every chunk"),
			"metadata":    map[string]interface{}{"type": "object", "description": "Extra metadata merged into every chunk"},
			"collection":  collectionProp(),
			"chunk_size":  intProp("Maximum characters per chunk", documents.DefaultChunkSize),
			"overlap":     map[string]interface{}{"type": "integer", "description": "Characters shared by consecutive chunks", "default": documents.DefaultOverlap, "minimum": 0},
			"replace":     boolProp("Delete the existing chunks of this title first", false),
		}, "content", "title"),
	}
}

func documentSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "document_search",
		Description: "Semantic search over ingested documents filtered by category, doc type and tags",
		InputSchema: objectSchema(map[string]interface{}{
			"query":      stringProp("Search text"),
			"category":   stringProp("Only return chunks of this category"),
			"doc_type":   stringProp("Only return chunks of this document type"),
			"tags":       stringArrayProp("Return chunks carrying at least one of these tags"),
			"collection": collectionProp(),
			"n_results":  intProp("Maximum number of results", documents.DefaultNResults),
		}, "query"),
	}
}

func documentListTool() mcp.Tool {
	return mcp.Tool{
		Name:        "document_list",
		Description: "List ingested documents grouped by title",
		InputSchema: objectSchema(map[string]interface{}{
			"collection": collectionProp(),
			"category":   stringProp("Only list documents of this category"),
			"doc_type":   stringProp("Only list documents of this type"),
		}),
	}
}

func documentCategoriesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "document_categories",
		Description: "List document categories, their document types, and source types",
		InputSchema: objectSchema(map[string]interface{}{}),
	}
}

func pdfProps(sourceDescription string) map[string]interface{} {
	return map[string]interface{}{
		"source":     stringProp(sourceDescription),
		"title":      stringProp("Document title; derived from the file name when omitted"),
		"category":   map[string]interface{}{"type": "string", "enum": categoryNames(), "default": documents.DefaultPDFCategory},
		"doc_type":   map[string]interface{}{"type": "string", "default": documents.DefaultPDFDocType},
		"tags":       stringArrayProp("Labels stored with every chunk"),
		"collection": collectionProp(),
		"chunk_size": intProp("Maximum characters per chunk", documents.DefaultPDFChunkSize),
		"overlap":    map[string]interface{}{"type": "integer", "description": "Characters shared by consecutive chunks", "default": documents.DefaultPDFOverlap, "minimum": 0},
		"replace":    boolProp("Delete the existing chunks of this title first", false),
	}
}

func pdfIngestFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "pdf_ingest_file",
		Description: "Extract the text of a local PDF file and ingest it",
		InputSchema: objectSchema(pdfProps("Path of the PDF file"), "source"),
	}
}

func pdfIngestURLTool() mcp.Tool {
	return mcp.Tool{
		Name:        "pdf_ingest_url",
		Description: "Download a PDF over HTTP(S), extract its text and ingest it",
		InputSchema: objectSchema(pdfProps("http or https URL of the PDF"), "source"),
	}
}

func pdfIngestPresetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "pdf_ingest_preset",
		Description: "Ingest a PDF from a URL or path with a preset category and chunking profile. Presets: " + strings.Join(documents.PresetNames(), ", "),
		InputSchema: objectSchema(map[string]interface{}{
			"preset":     map[string]interface{}{"type": "string", "enum": documents.PresetNames()},
			"source":     stringProp("URL or local path of the PDF"),
			"title":      stringProp("Document title; derived from the file name when omitted"),
			"tags":       stringArrayProp("Labels added to the preset's tags"),
			"collection": collectionProp(),
		}, "preset", "source"),
	}
}

func syncDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_documents",
		Description: "Ingest new and modified PDFs from the data source folder",
		InputSchema: objectSchema(map[string]interface{}{}),
	}
}

func syncStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_status",
		Description: "Report the file index and the vector store state used by sync",
		InputSchema: objectSchema(map[string]interface{}{}),
	}
}
