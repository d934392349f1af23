package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docstore-mcp/internal/storage"
	"github.com/dshills/docstore-mcp/pkg/types"
)

type fakePoint struct {
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// fakeQdrant implements the subset of the REST API the client uses
type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]map[string]fakePoint
	apiKeys     []string
}

func newFakeQdrant(t *testing.T) (*fakeQdrant, *Storage) {
	t.Helper()
	f := &fakeQdrant{collections: map[string]map[string]fakePoint{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, NewStorage(Config{URL: srv.URL + "/", APIKey: "k", Dimension: 2})
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	reply := func(v any) { _ = json.NewEncoder(w).Encode(map[string]any{"result": v}) }
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	if len(parts) == 1 {
		names := make([]map[string]string, 0)
		for n := range f.collections {
			names = append(names, map[string]string{"name": n})
		}
		reply(map[string]any{"collections": names})
		return
	}

	name := parts[1]
	points, exists := f.collections[name]

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodPut:
			f.collections[name] = map[string]fakePoint{}
			reply(true)
		case http.MethodDelete:
			delete(f.collections, name)
			reply(exists)
		default:
			if !exists {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			reply(map[string]any{"status": "green"})
		}
		return
	}

	if parts[2] == "index" {
		reply(true)
		return
	}
	if !exists {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	op := ""
	if len(parts) > 3 {
		op = parts[3]
	}
	switch op {
	case "":
		raw, _ := json.Marshal(body["points"])
		var in []struct {
			ID      string         `json:"id"`
			Vector  []float32      `json:"vector"`
			Payload map[string]any `json:"payload"`
		}
		_ = json.Unmarshal(raw, &in)
		for _, p := range in {
			points[p.ID] = fakePoint{Vector: p.Vector, Payload: p.Payload}
		}
		reply(map[string]any{"status": "completed"})
	case "count":
		reply(map[string]any{"count": len(filterPoints(points, body["filter"]))})
	case "delete":
		for _, id := range filterPoints(points, body["filter"]) {
			delete(points, id)
		}
		reply(map[string]any{"status": "completed"})
	case "search":
		raw, _ := json.Marshal(body["vector"])
		var q []float32
		_ = json.Unmarshal(raw, &q)
		type hit struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		}
		hits := make([]hit, 0, len(points))
		for _, p := range points {
			hits = append(hits, hit{Score: storage.CosineSimilarity(q, p.Vector), Payload: p.Payload})
		}
		sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
		limit := int(body["limit"].(float64))
		if len(hits) > limit {
			hits = hits[:limit]
		}
		reply(hits)
	case "scroll":
		ids := make([]string, 0, len(points))
		for id := range points {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		out := make([]map[string]any, 0, len(ids))
		for _, id := range ids {
			out = append(out, map[string]any{"id": id, "payload": points[id].Payload})
		}
		reply(map[string]any{"points": out, "next_page_offset": nil})
	}
}

func filterPoints(points map[string]fakePoint, filter any) []string {
	ids := make([]string, 0)
	want := ""
	spared := map[any]bool{}
	if filter != nil {
		f := filter.(map[string]any)
		cond := f["must"].([]any)[0].(map[string]any)
		want = cond["match"].(map[string]any)["value"].(string)
		if not, ok := f["must_not"].([]any); ok {
			for _, id := range not[0].(map[string]any)["match"].(map[string]any)["any"].([]any) {
				spared[id] = true
			}
		}
	}
	for id, p := range points {
		if filter == nil || (p.Payload["document_title"] == want && !spared[p.Payload["entry_id"]]) {
			ids = append(ids, id)
		}
	}
	return ids
}

func rec(id, title string, v ...float32) storage.Record {
	return storage.Record{ID: id, Document: "doc " + id, Metadata: types.Metadata{"document_title": title, "chunk_index": 3}, Vector: v}
}

func TestStorage_CollectionLifecycle(t *testing.T) {
	f, s := newFakeQdrant(t)
	ctx := context.Background()

	_, err := s.GetCollection(ctx, "docs")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	c, err := s.GetOrCreateCollection(ctx, "docs", nil)
	require.NoError(t, err)
	assert.Equal(t, "docs", c.Name)
	assert.Equal(t, "Document knowledge base", c.Metadata.String("description", ""))

	all, err := s.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, s.DeleteCollection(ctx, "docs"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "docs"), storage.ErrNotFound)

	for _, k := range f.apiKeys {
		assert.Equal(t, "k", k)
	}
}

func TestStorage_UpsertQueryDelete(t *testing.T) {
	_, s := newFakeQdrant(t)
	ctx := context.Background()

	n, err := s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.Upsert(ctx, "docs", []storage.Record{
		rec("a0", "Alpha", 1, 0),
		rec("a1", "Alpha", 0.9, 0.1),
		rec("b0", "Beta", 0, 1),
	}))
	require.NoError(t, s.Upsert(ctx, "docs", []storage.Record{rec("a0", "Alpha", 1, 0)}))

	n, err = s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "same id maps to the same point")

	matches, err := s.Query(ctx, "docs", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a0", matches[0].ID)
	assert.Equal(t, "doc a0", matches[0].Document)
	assert.InDelta(t, 0, matches[0].Distance, 1e-6)
	assert.Equal(t, 3, matches[0].Metadata.Int("chunk_index", 0))

	deleted, err := s.DeleteByTitle(ctx, "docs", "Alpha")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	n, err = s.Count(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStorage_DeleteByTitleKeepsIDs(t *testing.T) {
	_, s := newFakeQdrant(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []storage.Record{
		rec("a0", "Alpha", 1, 0),
		rec("a1", "Alpha", 0, 1),
		rec("b0", "Beta", 1, 1),
	}))

	deleted, err := s.DeleteByTitle(ctx, "docs", "Alpha", "a0")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	matches, err := s.Peek(ctx, "docs", 10)
	require.NoError(t, err)
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"a0", "b0"}, ids)
}

func TestStorage_PeekInWriteOrder(t *testing.T) {
	_, s := newFakeQdrant(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []storage.Record{
		rec("zeta", "Z", 1, 0),
		rec("alpha", "A", 0, 1),
		rec("mid", "M", 1, 1),
	}))

	peek, err := s.Peek(ctx, "docs", 2)
	require.NoError(t, err)
	require.Len(t, peek, 2)
	assert.Equal(t, "zeta", peek[0].ID)
	assert.Equal(t, "alpha", peek[1].ID)
	assert.Equal(t, 1.0, peek[0].Distance)

	missing, err := s.Peek(ctx, "nope", 5)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestStorage_Validation(t *testing.T) {
	_, s := newFakeQdrant(t)
	ctx := context.Background()

	err := s.Upsert(ctx, "docs", []storage.Record{rec("a", "A", 1, 0), rec("b", "B", 1)})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	matches, err := s.Query(ctx, "docs", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPointID(t *testing.T) {
	assert.Equal(t, PointID("guide_chunk_0000"), PointID("guide_chunk_0000"))
	assert.NotEqual(t, PointID("guide_chunk_0000"), PointID("guide_chunk_0001"))
	assert.Len(t, PointID("x"), 36)
}
