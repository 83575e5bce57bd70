package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/rackguard/rackguard/store"
)

// UpsertChunk inserts or replaces a document chunk with its embedding.
func (d *DB) UpsertChunk(ctx context.Context, chunk *store.Chunk) (*store.Chunk, error) {
	metadata, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal chunk metadata")
	}

	stmt := `
		INSERT INTO chunk (
			id, source_id, source_type, content, embedding,
			asrs_topic, regulation_section, table_number, figure_number, metadata
		)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (id)
		DO UPDATE SET
			source_id = EXCLUDED.source_id,
			source_type = EXCLUDED.source_type,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			asrs_topic = EXCLUDED.asrs_topic,
			regulation_section = EXCLUDED.regulation_section,
			table_number = EXCLUDED.table_number,
			figure_number = EXCLUDED.figure_number,
			metadata = EXCLUDED.metadata
		RETURNING id
	`

	vector := pgvector.NewVector(chunk.Embedding)
	err = d.db.QueryRowContext(ctx, stmt,
		chunk.ID,
		chunk.SourceID,
		string(chunk.SourceType),
		chunk.Content,
		vector,
		nullable(chunk.ASRSTopic),
		nullable(chunk.Section),
		nullable(chunk.TableNumber),
		nullable(chunk.FigureNumber),
		metadata,
	).Scan(&chunk.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert chunk")
	}
	return chunk, nil
}

// DeleteChunksBySource removes every chunk ingested from a source document.
func (d *DB) DeleteChunksBySource(ctx context.Context, sourceID string) error {
	stmt := `DELETE FROM chunk WHERE source_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, sourceID); err != nil {
		return errors.Wrap(err, "failed to delete chunks by source")
	}
	return nil
}

// resultColumns is the shared projection for search queries. The score
// expression is prepended by each caller.
const resultColumns = `
	c.id, c.source_id, c.source_type, c.content,
	c.asrs_topic, c.regulation_section,
	c.metadata->>'design_parameter' AS design_parameter,
	c.table_number, c.figure_number,
	c.metadata->>'reference_title' AS reference_title,
	c.metadata
`

// SearchSemantic runs cosine-similarity search over chunk embeddings.
// The <=> operator computes cosine distance, so similarity is 1 - distance.
func (d *DB) SearchSemantic(ctx context.Context, opts *store.SemanticSearchOptions) ([]*store.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vector := pgvector.NewVector(opts.Embedding)
	args := []any{vector, opts.Threshold}
	where := "1 - (c.embedding <=> $1) >= $2"
	if cond, condArgs := opts.Filter.Conditions(len(args) + 1); cond != "" {
		where += " AND " + cond
		args = append(args, condArgs...)
	}

	query := `
		SELECT 1 - (c.embedding <=> $1) AS score, ` + resultColumns + `
		FROM chunk c
		WHERE ` + where + `
		ORDER BY c.embedding <=> $1
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run semantic search")
	}
	defer rows.Close()

	return scanResults(rows)
}

// SearchHybrid fuses vector similarity with full-text rank. The text rank is
// normalized by the best rank in the candidate set so both signals share the
// [0, 1] scale before weighting.
func (d *DB) SearchHybrid(ctx context.Context, opts *store.HybridSearchOptions) ([]*store.SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	textWeight := opts.TextWeight
	if textWeight < 0 {
		textWeight = 0
	} else if textWeight > 1 {
		textWeight = 1
	}

	vector := pgvector.NewVector(opts.Embedding)
	args := []any{vector, opts.Query, textWeight}
	where := "1 = 1"
	if cond, condArgs := opts.Filter.Conditions(len(args) + 1); cond != "" {
		where = cond
		args = append(args, condArgs...)
	}

	query := `
		WITH scored AS (
			SELECT
				1 - (c.embedding <=> $1) AS vec_score,
				ts_rank_cd(c.content_tsv, plainto_tsquery('english', $2)) AS text_rank,
				` + resultColumns + `
			FROM chunk c
			WHERE ` + where + `
		)
		SELECT
			(1 - $3::float8) * vec_score
				+ $3::float8 * COALESCE(text_rank / NULLIF(MAX(text_rank) OVER (), 0), 0) AS score,
			id, source_id, source_type, content,
			asrs_topic, regulation_section, design_parameter,
			table_number, figure_number, reference_title, metadata
		FROM scored
		ORDER BY score DESC
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run hybrid search")
	}
	defer rows.Close()

	return scanResults(rows)
}

// ReferencesByTopic lists table and figure chunks whose topic or content
// mentions the given topic, best match first.
func (d *DB) ReferencesByTopic(ctx context.Context, topic string, limit int) ([]*store.Reference, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT
			c.source_type,
			COALESCE(c.table_number, c.figure_number, '') AS number,
			COALESCE(c.metadata->>'reference_title', '') AS title,
			COALESCE(c.regulation_section, '') AS section,
			ts_rank_cd(c.content_tsv, plainto_tsquery('english', $1)) AS relevance
		FROM chunk c
		WHERE c.source_type IN ('table', 'figure')
			AND (c.asrs_topic ILIKE $2 OR c.content_tsv @@ plainto_tsquery('english', $1))
		ORDER BY relevance DESC
		LIMIT $3
	`

	rows, err := d.db.QueryContext(ctx, query, topic, "%"+topic+"%", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list references by topic")
	}
	defer rows.Close()

	list := []*store.Reference{}
	for rows.Next() {
		var ref store.Reference
		if err := rows.Scan(&ref.Type, &ref.Number, &ref.Title, &ref.Section, &ref.Relevance); err != nil {
			return nil, errors.Wrap(err, "failed to scan reference")
		}
		list = append(list, &ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func scanResults(rows *sql.Rows) ([]*store.SearchResult, error) {
	list := []*store.SearchResult{}
	for rows.Next() {
		var (
			result        store.SearchResult
			sourceType    string
			asrsTopic     sql.NullString
			section       sql.NullString
			designParam   sql.NullString
			tableNumber   sql.NullString
			figureNumber  sql.NullString
			refTitle      sql.NullString
			score         sql.NullFloat64
			metadataBytes []byte
		)
		err := rows.Scan(
			&score,
			&result.ID,
			&result.SourceID,
			&sourceType,
			&result.Content,
			&asrsTopic,
			&section,
			&designParam,
			&tableNumber,
			&figureNumber,
			&refTitle,
			&metadataBytes,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan search result")
		}

		result.SourceType = sourceType
		result.Similarity = score.Float64
		result.ASRSTopic = asrsTopic.String
		result.RegulationSection = section.String
		result.DesignParameter = designParam.String
		result.TableNumber = tableNumber.String
		result.FigureNumber = figureNumber.String
		result.ReferenceTitle = refTitle.String
		if len(metadataBytes) > 0 {
			if err := json.Unmarshal(metadataBytes, &result.Metadata); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal result metadata")
			}
		}

		list = append(list, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
