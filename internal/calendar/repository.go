package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
)

type Repository interface {
	Create(ctx context.Context, b *Block) error
	GetByID(ctx context.Context, id string) (*Block, error)
	// ListInRange returns blocks of the space overlapping window, bounds included.
	ListInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*Block, error)
	Delete(ctx context.Context, id string) error
}

var blockColumns = []string{"id", "space_id", "start_date", "end_date", "kind", "label", "created_at"}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func scanBlock(row pgx.Row) (*Block, error) {
	var b Block
	if err := row.Scan(&b.ID, &b.SpaceID, &b.StartDate, &b.EndDate, &b.Kind, &b.Label, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.StartDate = daterange.Date(b.StartDate)
	b.EndDate = daterange.Date(b.EndDate)
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Block) error {
	query, args, err := psql().Insert("public.calendar_blocks").
		Columns("space_id", "start_date", "end_date", "kind", "label").
		Values(b.SpaceID, b.StartDate, b.EndDate, b.Kind, b.Label).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create block query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrSpaceNotFound
		}
		return apperror.Storage(err, "create block failed")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Block, error) {
	query, args, err := psql().Select(blockColumns...).
		From("public.calendar_blocks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get block query failed: %w", err)
	}

	b, err := scanBlock(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperror.Storage(err, "get block failed")
	}
	return b, nil
}

func (r *pgxRepository) ListInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*Block, error) {
	query, args, err := psql().Select(blockColumns...).
		From("public.calendar_blocks").
		Where(squirrel.Eq{"space_id": spaceID}).
		Where(squirrel.LtOrEq{"start_date": window.End}).
		Where(squirrel.GtOrEq{"end_date": window.Start}).
		OrderBy("start_date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list blocks query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Storage(err, "list blocks failed")
	}
	defer rows.Close()

	var blocks []*Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, apperror.Storage(err, "scan block failed")
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage(err, "list blocks failed")
	}
	return blocks, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql().Delete("public.calendar_blocks").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete block query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return apperror.Storage(err, "delete block failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
