package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discuss_go/models"
)

// InsertLineage добавляет рёбра нового поста: (parent, child, 1) и
// (A, child, s+1) для каждого ребра (A, parent, s).
// Один INSERT ... SELECT внутри транзакции создания поста, поэтому параллельные
// ответы одному родителю не видят частично записанную цепочку.
func (q *Queries) InsertLineage(ctx context.Context, parentID, childID int64) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO lineage (ancestor_id, descendant_id, separation)
		SELECT CAST($1 AS BIGINT), CAST($2 AS BIGINT), 1
		UNION ALL
		SELECT ancestor_id, CAST($2 AS BIGINT), separation + 1
		FROM lineage
		WHERE descendant_id = CAST($1 AS BIGINT)
	`, parentID, childID)
	if err != nil {
		return fmt.Errorf("insert lineage for post %d: %w", childID, err)
	}
	return nil
}

// Descendants возвращает всех потомков поста на любом расстоянии.
func (q *Queries) Descendants(ctx context.Context, postID int64) ([]int64, error) {
	return q.listIDs(ctx, `
		SELECT descendant_id FROM lineage
		WHERE ancestor_id = $1
		ORDER BY separation, descendant_id
	`, postID)
}

// PathToRoot возвращает предков от непосредственного родителя до корня.
func (q *Queries) PathToRoot(ctx context.Context, postID int64) ([]int64, error) {
	return q.listIDs(ctx, `
		SELECT ancestor_id FROM lineage
		WHERE descendant_id = $1
		ORDER BY separation
	`, postID)
}

// Separation возвращает расстояние между предком и потомком; ok=false, если связи нет.
func (q *Queries) Separation(ctx context.Context, ancestorID, descendantID int64) (int, bool, error) {
	var sep int
	err := q.q.QueryRowContext(ctx,
		`SELECT separation FROM lineage WHERE ancestor_id = $1 AND descendant_id = $2`,
		ancestorID, descendantID,
	).Scan(&sep)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return sep, true, nil
}

// ListEdgesTo возвращает все рёбра, оканчивающиеся в посте.
func (q *Queries) ListEdgesTo(ctx context.Context, postID int64) ([]models.LineageEdge, error) {
	return q.listEdges(ctx, `
		SELECT ancestor_id, descendant_id, separation FROM lineage
		WHERE descendant_id = $1
		ORDER BY separation
	`, postID)
}

// ListSubtreeLineage возвращает рёбра, у которых оба конца лежат в поддереве rootID.
func (q *Queries) ListSubtreeLineage(ctx context.Context, rootID int64) ([]models.LineageEdge, error) {
	return q.listEdges(ctx, `
		SELECT ancestor_id, descendant_id, separation FROM lineage
		WHERE descendant_id IN (SELECT descendant_id FROM lineage WHERE ancestor_id = $1)
		  AND (ancestor_id = $1
		       OR ancestor_id IN (SELECT descendant_id FROM lineage WHERE ancestor_id = $1))
		ORDER BY ancestor_id, separation, descendant_id
	`, rootID)
}

func (q *Queries) listEdges(ctx context.Context, query string, args ...any) ([]models.LineageEdge, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []models.LineageEdge
	for rows.Next() {
		var e models.LineageEdge
		if err := rows.Scan(&e.AncestorID, &e.DescendantID, &e.Separation); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (q *Queries) listIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
