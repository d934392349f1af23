package storage

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorSerialization(t *testing.T) {
	vectors := [][]float32{
		{},
		{1.5, -2.25, 0},
		{float32(math.Pi), math.MaxFloat32, -math.SmallestNonzeroFloat32},
	}
	for _, v := range vectors {
		blob := serializeVector(v)
		assert.Len(t, blob, len(v)*4)
		assert.Equal(t, v, deserializeVector(blob))
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestQuery_RanksByDistance(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []Record{
		record("east", "E", 1, 0),
		record("north", "N", 0, 1),
		record("northeast", "NE", 1, 1),
		record("west", "W", -1, 0),
	}))

	matches, err := s.Query(ctx, "docs", []float32{1, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, "east", matches[0].ID)
	assert.Equal(t, "northeast", matches[1].ID)
	assert.Equal(t, "north", matches[2].ID)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
	assert.Equal(t, "text of east", matches[0].Document)
	assert.Equal(t, "E", matches[0].Metadata.String("document_title", ""))
	assert.Equal(t, 0, matches[0].Metadata.Int("chunk_index", -1))
}

func TestQuery_EdgeCases(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	matches, err := s.Query(ctx, "missing", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	require.NoError(t, s.Upsert(ctx, "docs", []Record{record("a", "A", 1, 0)}))

	matches, err = s.Query(ctx, "docs", []float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = s.Query(ctx, "docs", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches, "entries of another dimension are skipped")

	matches, err = s.Query(ctx, "docs", []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 0, matches[0].Distance, 1e-9)
}

func TestQuery_TiesKeepInsertionOrder(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	records := make([]Record, 0, 4)
	for i := 0; i < 4; i++ {
		records = append(records, record(fmt.Sprintf("same_%d", i), "S", 0, 1))
	}
	require.NoError(t, s.Upsert(ctx, "docs", records))

	matches, err := s.Query(ctx, "docs", []float32{0, 1}, 4)
	require.NoError(t, err)
	require.Len(t, matches, 4)
	for i, m := range matches {
		assert.Equal(t, fmt.Sprintf("same_%d", i), m.ID)
	}
}

func BenchmarkQuery(b *testing.B) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(b, err)
	defer s.Close()
	ctx := context.Background()

	records := make([]Record, 0, 1000)
	for i := 0; i < 1000; i++ {
		v := make([]float32, 384)
		for j := range v {
			v[j] = float32((i*31+j*17)%97) / 97
		}
		records = append(records, record(fmt.Sprintf("chunk_%04d", i), "Bench", v...))
	}
	require.NoError(b, s.Upsert(ctx, "bench", records))

	query := records[500].Vector
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Query(ctx, "bench", query, 10); err != nil {
			b.Fatal(err)
		}
	}
}
