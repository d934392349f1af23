package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docstore-mcp/internal/documents"
	"github.com/dshills/docstore-mcp/internal/indexer"
	"github.com/dshills/docstore-mcp/internal/storage"
	"github.com/dshills/docstore-mcp/internal/vectorstore"
	"github.com/dshills/docstore-mcp/pkg/types"
)

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printResult prints a structured result and turns an unsuccessful one
// into a command error
func printResult(cmd *cobra.Command, v interface{}, r vectorstore.Result) error {
	if err := printJSON(cmd.OutOrStdout(), v); err != nil {
		return err
	}
	if !r.Success {
		return errors.New(r.Error)
	}
	return nil
}

// withStore runs fn with a wired app that has the vector store enabled
func withStore(fn func(a *app) error) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireStore(); err != nil {
		return err
	}
	return fn(a)
}

func syncCmd() *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "sync [data-source]",
		Short: "Ingest new and modified PDFs from the data source folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				cfg.Sync.DataSource = args[0]
			}
			if cmd.Flags().Changed("prune") {
				cfg.Sync.PruneMissing = prune
			}
			return withStore(func(a *app) error {
				if err := os.MkdirAll(cfg.Sync.DataSource, 0o755); err != nil {
					return err
				}
				summary, err := a.syncer.Sync(cmd.Context())
				if summary != nil {
					if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
						return perr
					}
				}
				if errors.Is(err, indexer.ErrSyncInProgress) {
					return fmt.Errorf("another sync is running: %w", err)
				}
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "delete documents whose files were removed from the data source")
	return cmd
}

type ingestFlags struct {
	title      string
	category   string
	docType    string
	sourceType string
	tags       string
	collection string
	preset     string
	chunkSize  int
	overlap    int
	replace    bool
}

func ingestCmd() *cobra.Command {
	var f ingestFlags
	cmd := &cobra.Command{
		Use:   "ingest <file|url>",
		Short: "Ingest a PDF file, a PDF URL, or a text file",
		Long: `Ingests one document. PDFs are read from a local path or downloaded from
an http(s) URL; any other file is ingested as plain text. With --preset the
category, document type, tags, and chunking come from a named profile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(a *app) error {
				res := ingest(cmd, a, args[0], f)
				return printResult(cmd, res, res.Result)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.title, "title", "", "document title (PDF default: derived from the file name)")
	flags.StringVar(&f.category, "category", "", "document category")
	flags.StringVar(&f.docType, "doc-type", "", "document type")
	flags.StringVar(&f.sourceType, "source-type", "file", "source type for text files")
	flags.StringVar(&f.tags, "tags", "", "comma-separated tags")
	flags.StringVar(&f.collection, "collection", "", "target collection")
	flags.StringVar(&f.preset, "preset", "", "preset profile: "+strings.Join(documents.PresetNames(), ", "))
	flags.IntVar(&f.chunkSize, "chunk-size", 0, "maximum characters per chunk")
	flags.IntVar(&f.overlap, "overlap", 0, "characters shared by consecutive chunks")
	flags.BoolVar(&f.replace, "replace", false, "delete existing chunks of the title first")
	return cmd
}

func ingest(cmd *cobra.Command, a *app, source string, f ingestFlags) documents.IngestResult {
	ctx := cmd.Context()
	tags := types.SplitTags(f.tags)
	if cmd.Flags().Changed("overlap") && f.overlap == 0 {
		f.overlap = documents.NoOverlap
	}

	if f.preset != "" {
		return a.docs.IngestPreset(ctx, documents.PresetRequest{
			Preset:     f.preset,
			Source:     source,
			Title:      f.title,
			Tags:       tags,
			Collection: f.collection,
		})
	}

	pdfReq := documents.PDFRequest{
		Source:     source,
		Title:      f.title,
		Category:   f.category,
		DocType:    f.docType,
		Tags:       tags,
		Collection: f.collection,
		ChunkSize:  f.chunkSize,
		Overlap:    f.overlap,
		Replace:    f.replace,
	}
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return a.docs.IngestPDFFromURL(ctx, pdfReq)
	}
	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		return a.docs.IngestPDFFile(ctx, pdfReq)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		var res documents.IngestResult
		res.Error = fmt.Sprintf("Failed to read %s: %v", source, err)
		return res
	}
	title := f.title
	if title == "" {
		title = documents.TitleFromFileName(filepath.Base(source))
	}
	abs, _ := filepath.Abs(source)
	return a.docs.Ingest(ctx, documents.IngestRequest{
		Content:    string(data),
		Title:      title,
		SourceType: f.sourceType,
		Category:   f.category,
		DocType:    f.docType,
		Tags:       tags,
		Metadata:   types.Metadata{"source_file": abs},
		Collection: f.collection,
		ChunkSize:  f.chunkSize,
		Overlap:    f.overlap,
		Replace:    f.replace,
	})
}

func searchCmd() *cobra.Command {
	var (
		category   string
		docType    string
		tags       string
		collection string
		n          int
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over ingested documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withStore(func(a *app) error {
				if raw {
					res := a.store.Search(cmd.Context(), vectorstore.SearchRequest{
						Query:            query,
						NResults:         n,
						Collection:       collection,
						IncludeDistances: true,
					})
					return printResult(cmd, res, res.Result)
				}
				res := a.docs.Search(cmd.Context(), documents.DocSearchRequest{
					Query:      query,
					Category:   category,
					DocType:    docType,
					Tags:       types.SplitTags(tags),
					Collection: collection,
					NResults:   n,
				})
				return printResult(cmd, res, res.Result)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&category, "category", "", "only return chunks of this category")
	flags.StringVar(&docType, "doc-type", "", "only return chunks of this document type")
	flags.StringVar(&tags, "tags", "", "comma-separated tags, any of which must match")
	flags.StringVar(&collection, "collection", "", "collection to search")
	flags.IntVarP(&n, "n", "n", documents.DefaultNResults, "number of results")
	flags.BoolVar(&raw, "raw", false, "search store entries without document filters")
	return cmd
}

func listCmd() *cobra.Command {
	var category, docType, collection string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ingested documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(a *app) error {
				res := a.docs.List(cmd.Context(), documents.ListRequest{
					Collection: collection,
					Category:   category,
					DocType:    docType,
				})
				return printResult(cmd, res, res.Result)
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list documents of this category")
	cmd.Flags().StringVar(&docType, "doc-type", "", "only list documents of this type")
	cmd.Flags().StringVar(&collection, "collection", "", "collection to list")
	return cmd
}

func infoCmd() *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe a collection and list all collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(a *app) error {
				res := a.store.Info(cmd.Context(), collection)
				return printResult(cmd, res, res.Result)
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection to describe")
	return cmd
}

func resetCmd() *cobra.Command {
	var (
		collection string
		yes        bool
	)
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every entry of a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all entries; pass --yes to confirm")
			}
			return withStore(func(a *app) error {
				res := a.store.Reset(cmd.Context(), collection)
				return printResult(cmd, res, res.Result)
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "collection to reset")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the reset")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the file index and vector store state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(a *app) error {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"file_index":   a.syncer.FileIndexStatus(),
					"vector_store": a.syncer.StoreStatus(cmd.Context()),
				})
			})
		},
	}
}

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List document categories, types, and presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := documents.New(nil, nil).Categories()
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"categories":   res.Categories,
				"source_types": res.SourceTypes,
				"presets":      documents.Presets,
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "docstore %s\n", version)
			fmt.Fprintf(w, "Build Time: %s\n", buildTime)
			fmt.Fprintf(w, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(w, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(w, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
			return nil
		},
	}
}
