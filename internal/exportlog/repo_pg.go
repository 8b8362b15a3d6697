package exportlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// RepoPG stores entries in the export_history table.
type RepoPG struct {
	db queryable
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{db: pool}
}

const historyCols = `id, data_type, format, file_name, row_count, user_id, role,
	status, error, request_id, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(
		&e.ID, &e.DataType, &e.Format, &e.FileName, &e.RowCount, &e.UserID, &e.Role,
		&e.Status, &e.Error, &e.RequestID, &e.CreatedAt,
	)
	return &e, err
}

func (r *RepoPG) Record(ctx context.Context, e Entry) error {
	q := fmt.Sprintf(`INSERT INTO export_history (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`, historyCols)
	_, err := r.db.Exec(ctx, q,
		e.ID, e.DataType, e.Format, e.FileName, e.RowCount, e.UserID, e.Role,
		e.Status, e.Error, e.RequestID, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert export_history: %w", err)
	}
	return nil
}

func (r *RepoPG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM export_history").Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM export_history ORDER BY created_at DESC LIMIT $1 OFFSET $2", historyCols)
	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}
