// Package qdrant implements storage.Storage over the Qdrant REST API.
//
// Entry ids are mapped to UUIDv5 point ids; the original id, text, and
// metadata travel in the point payload. Qdrant has no collection metadata,
// so collections report the default description.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/docstore-mcp/internal/storage"
	"github.com/dshills/docstore-mcp/pkg/types"
)

const scrollPageSize = 256

// Config configures the client
type Config struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	Dimension int // vector size for collections created before the first upsert
}

// Storage is a minimal REST client to Qdrant using cosine distance
type Storage struct {
	url       string
	apiKey    string
	dimension int
	client    *http.Client
	seq       int64
}

var _ storage.Storage = (*Storage)(nil)

// NewStorage creates a client; no request is made until first use
func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:       strings.TrimRight(cfg.URL, "/"),
		apiKey:    cfg.APIKey,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: timeout},
		seq:       time.Now().UnixMicro(),
	}
}

// PointID derives the Qdrant point id of an entry id
func PointID(entryID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("docstore:"+entryID)).String()
}

type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("qdrant: %d %s", e.status, e.msg)
}

func isNotFound(err error) bool {
	if e, ok := err.(*apiError); ok {
		return e.status == http.StatusNotFound
	}
	return false
}

func (s *Storage) collectionURL(name string, parts ...string) string {
	u := s.url + "/collections/" + url.PathEscape(name)
	for _, p := range parts {
		u += "/" + p
	}
	return u
}

func (s *Storage) do(ctx context.Context, method, u string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &apiError{status: resp.StatusCode, msg: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Storage) createCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("qdrant: collection %s needs a vector dimension", name)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := s.do(ctx, http.MethodPut, s.collectionURL(name), body, nil); err != nil {
		return err
	}
	index := map[string]any{"field_name": "document_title", "field_schema": "keyword"}
	return s.do(ctx, http.MethodPut, s.collectionURL(name, "index")+"?wait=true", index, nil)
}

func (s *Storage) GetCollection(ctx context.Context, name string) (*storage.Collection, error) {
	err := s.do(ctx, http.MethodGet, s.collectionURL(name), nil, nil)
	if isNotFound(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &storage.Collection{Name: name, Metadata: storage.DefaultCollectionMetadata()}, nil
}

func (s *Storage) GetOrCreateCollection(ctx context.Context, name string, metadata types.Metadata) (*storage.Collection, error) {
	c, err := s.GetCollection(ctx, name)
	if err == nil {
		return c, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}
	if err := s.createCollection(ctx, name, s.dimension); err != nil {
		return nil, err
	}
	return &storage.Collection{Name: name, Metadata: storage.DefaultCollectionMetadata(), CreatedAt: time.Now()}, nil
}

func (s *Storage) DeleteCollection(ctx context.Context, name string) error {
	var resp struct {
		Result bool `json:"result"`
	}
	err := s.do(ctx, http.MethodDelete, s.collectionURL(name), nil, &resp)
	if isNotFound(err) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	if !resp.Result {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Storage) ListCollections(ctx context.Context) ([]*storage.Collection, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.url+"/collections", nil, &resp); err != nil {
		return nil, err
	}

	out := make([]*storage.Collection, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		out = append(out, &storage.Collection{Name: c.Name, Metadata: storage.DefaultCollectionMetadata()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Storage) count(ctx context.Context, collection string, filter any) (int, error) {
	body := map[string]any{"exact": true}
	if filter != nil {
		body["filter"] = filter
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL(collection, "points", "count"), body, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) Count(ctx context.Context, collection string) (int, error) {
	return s.count(ctx, collection, nil)
}

type payload struct {
	EntryID       string         `json:"entry_id"`
	Document      string         `json:"document"`
	Metadata      types.Metadata `json:"metadata"`
	DocumentTitle string         `json:"document_title"`
	Seq           int64          `json:"seq"`
}

// Upsert writes records, creating the collection sized to the first vector
func (s *Storage) Upsert(ctx context.Context, collection string, records []storage.Record) error {
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Vector)
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record has empty id")
		}
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: %s has %d, expected %d", storage.ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
	}

	if _, err := s.GetCollection(ctx, collection); err == storage.ErrNotFound {
		if err := s.createCollection(ctx, collection, dim); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     PointID(r.ID),
			"vector": r.Vector,
			"payload": payload{
				EntryID:       r.ID,
				Document:      r.Document,
				Metadata:      r.Metadata,
				DocumentTitle: r.Metadata.String("document_title", ""),
				Seq:           atomic.AddInt64(&s.seq, 1),
			},
		}
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(collection, "points")+"?wait=true", map[string]any{"points": points}, nil)
}

func titleFilter(title string, keep []string) map[string]any {
	filter := map[string]any{
		"must": []map[string]any{
			{"key": "document_title", "match": map[string]any{"value": title}},
		},
	}
	if len(keep) > 0 {
		filter["must_not"] = []map[string]any{
			{"key": "entry_id", "match": map[string]any{"any": keep}},
		}
	}
	return filter
}

func (s *Storage) DeleteByTitle(ctx context.Context, collection, title string, keep ...string) (int, error) {
	filter := titleFilter(title, keep)
	n, err := s.count(ctx, collection, filter)
	if err != nil || n == 0 {
		return 0, err
	}
	err = s.do(ctx, http.MethodPost, s.collectionURL(collection, "points", "delete")+"?wait=true",
		map[string]any{"filter": filter}, nil)
	if err != nil {
		return 0, err
	}
	return n, nil
}

type scoredPoint struct {
	Score   float64 `json:"score"`
	Payload payload `json:"payload"`
}

func (p scoredPoint) match(distance float64) storage.Match {
	md := p.Payload.Metadata
	if md == nil {
		md = types.Metadata{}
	}
	return storage.Match{ID: p.Payload.EntryID, Document: p.Payload.Document, Metadata: md, Distance: distance}
}

func (s *Storage) Query(ctx context.Context, collection string, vector []float32, limit int) ([]storage.Match, error) {
	if limit <= 0 {
		return []storage.Match{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionURL(collection, "points", "search"), req, &resp)
	if isNotFound(err) {
		return []storage.Match{}, nil
	}
	if err != nil {
		return nil, err
	}

	matches := make([]storage.Match, 0, len(resp.Result))
	for _, p := range resp.Result {
		matches = append(matches, p.match(1-p.Score))
	}
	return matches, nil
}

// Peek scrolls the whole collection and returns the earliest-written entries
func (s *Storage) Peek(ctx context.Context, collection string, limit int) ([]storage.Match, error) {
	if limit <= 0 {
		return []storage.Match{}, nil
	}

	var points []scoredPoint
	var offset any
	for {
		req := map[string]any{"limit": scrollPageSize, "with_payload": true, "with_vector": false}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []scoredPoint `json:"points"`
				NextPageOffset any           `json:"next_page_offset"`
			} `json:"result"`
		}
		err := s.do(ctx, http.MethodPost, s.collectionURL(collection, "points", "scroll"), req, &resp)
		if isNotFound(err) {
			return []storage.Match{}, nil
		}
		if err != nil {
			return nil, err
		}
		points = append(points, resp.Result.Points...)
		if resp.Result.NextPageOffset == nil || len(resp.Result.Points) == 0 {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Payload.Seq < points[j].Payload.Seq })
	if len(points) > limit {
		points = points[:limit]
	}

	matches := make([]storage.Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, p.match(1))
	}
	return matches, nil
}

func (s *Storage) Location() string {
	return s.url
}

func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
