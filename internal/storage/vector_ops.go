package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
)

// searchVector ranks a collection's entries by cosine distance to queryVector
func searchVector(ctx context.Context, db *sql.DB, collection string, queryVector []float32, limit int) ([]Match, error) {
	if limit <= 0 {
		return []Match{}, nil
	}
	if VectorExtensionAvailable {
		matches, err := searchVectorOptimized(ctx, db, collection, queryVector, limit)
		if err == nil {
			return matches, nil
		}
		// vec0 functions are missing when the extension was not loaded
	}
	return searchVectorFallback(ctx, db, collection, queryVector, limit)
}

// searchVectorOptimized computes distances in SQL with sqlite-vec
func searchVectorOptimized(ctx context.Context, db *sql.DB, collection string, queryVector []float32, limit int) ([]Match, error) {
	query := `
		SELECT e.entry_id, e.document, e.metadata,
		       vec_distance_cosine(e.vector, ?) AS distance
		FROM entries e
		INNER JOIN collections c ON c.id = e.collection_id
		WHERE c.name = ? AND e.dimension = ?
		ORDER BY distance ASC, e.id ASC
		LIMIT ?
	`
	rows, err := db.QueryContext(ctx, query, serializeVector(queryVector), collection, len(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	matches := make([]Match, 0, limit)
	for rows.Next() {
		var m Match
		var metadata string
		if err := rows.Scan(&m.ID, &m.Document, &metadata, &m.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		m.Metadata = decodeOrEmpty(metadata)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// searchVectorFallback loads the collection's vectors and ranks them in Go
func searchVectorFallback(ctx context.Context, db *sql.DB, collection string, queryVector []float32, limit int) ([]Match, error) {
	query := `
		SELECT e.id, e.vector
		FROM entries e
		INNER JOIN collections c ON c.id = e.collection_id
		WHERE c.name = ?
	`
	rows, err := db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	candidates, err := computeDistances(rows, queryVector)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return loadMatches(ctx, db, candidates)
}

// computeDistances deserializes each row's vector and scores it
func computeDistances(rows *sql.Rows, queryVector []float32) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)
	for rows.Next() {
		var rowID int64
		var blob []byte
		if err := rows.Scan(&rowID, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		candidates = append(candidates, candidate{
			rowID:    rowID,
			distance: 1 - cosineSimilarity(queryVector, vector),
		})
	}
	return candidates, rows.Err()
}

// loadMatches fetches documents and metadata for ranked candidates, keeping their order
func loadMatches(ctx context.Context, db *sql.DB, candidates []candidate) ([]Match, error) {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		var m Match
		var metadata string
		err := db.QueryRowContext(ctx,
			`SELECT entry_id, document, metadata FROM entries WHERE id = ?`, c.rowID,
		).Scan(&m.ID, &m.Document, &metadata)
		if err == sql.ErrNoRows {
			continue // deleted between the two queries
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load entry: %w", err)
		}
		m.Metadata = decodeOrEmpty(metadata)
		m.Distance = c.distance
		matches = append(matches, m)
	}
	return matches, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

type candidate struct {
	rowID    int64
	distance float64
}

// sortCandidates orders by ascending distance, then insertion order
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].rowID < candidates[j].rowID
	})
}

// CosineSimilarity is an exported helper for other backends and tests
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
