package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/space-booking-backend/internal/db"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/space-booking-backend/internal/pkg/daterange"
)

type Repository interface {
	// Create inserts r and fills its generated and joined fields.
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, int, error)

	// ActiveInRange returns PENDING and CONFIRMED reservations of the space whose
	// dates overlap window, bounds included.
	ActiveInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*Reservation, error)

	// UpdateStatus moves the reservation from one status to another only if it
	// still holds from. It returns ErrStatusChanged otherwise.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Reservation, error)

	// ListEndedBefore returns reservations in status whose end date is before date.
	ListEndedBefore(ctx context.Context, status Status, date time.Time, limit int) ([]*Reservation, error)

	CountByStatus(ctx context.Context, filter StatsFilter) (map[Status]int, error)
	Delete(ctx context.Context, id string) error
}

var reservationColumns = []string{
	"r.id", "r.space_id", "r.tenant_id", "r.start_date", "r.end_date", "r.status",
	"r.created_at", "r.updated_at", "s.title", "s.owner_id", "s.nightly_rate",
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func psql() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func selectReservations() squirrel.SelectBuilder {
	return psql().Select(reservationColumns...).
		From("public.reservations r").
		Join("public.spaces s ON r.space_id = s.id")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner, extra ...any) (*Reservation, error) {
	var r Reservation
	dest := []any{
		&r.ID, &r.SpaceID, &r.TenantID, &r.StartDate, &r.EndDate, &r.Status,
		&r.CreatedAt, &r.UpdatedAt, &r.SpaceTitle, &r.OwnerID, &r.NightlyRate,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	r.StartDate = daterange.Date(r.StartDate)
	r.EndDate = daterange.Date(r.EndDate)
	return &r, nil
}

func (r *pgxRepository) Create(ctx context.Context, res *Reservation) error {
	insert, insertArgs, err := psql().Insert("public.reservations").
		Columns("space_id", "tenant_id", "start_date", "end_date", "status").
		Values(res.SpaceID, res.TenantID, res.StartDate, res.EndDate, res.Status).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create reservation query failed: %w", err)
	}

	// Insert and re-read are one unit: a failed re-read must not leave a row behind.
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, insert, insertArgs...).Scan(&id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) {
				switch pgErr.Code {
				case pgerrcode.ExclusionViolation:
					return fmt.Errorf("space %s %s: %w", res.SpaceID, res.Range(), ErrDatesUnavailable)
				case pgerrcode.ForeignKeyViolation:
					if strings.Contains(pgErr.ConstraintName, "tenant") {
						return ErrTenantNotFound
					}
					return ErrSpaceNotFound
				}
			}
			return apperror.Storage(err, "create reservation failed")
		}

		query, args, err := selectReservations().Where(squirrel.Eq{"r.id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build get reservation query failed: %w", err)
		}
		created, err := scanReservation(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return apperror.Storage(err, "read created reservation failed")
		}
		*res = *created
		return nil
	})
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	query, args, err := selectReservations().Where(squirrel.Eq{"r.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := scanReservation(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, apperror.Storage(err, "get reservation failed")
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Reservation, int, error) {
	query := psql().Select(append(reservationColumns, "count(*) OVER() as total_count")...).
		From("public.reservations r").
		Join("public.spaces s ON r.space_id = s.id")

	if filter.SpaceID != "" {
		query = query.Where(squirrel.Eq{"r.space_id": filter.SpaceID})
	}
	if filter.TenantID != "" {
		query = query.Where(squirrel.Eq{"r.tenant_id": filter.TenantID})
	}
	if filter.OwnerID != "" {
		query = query.Where(squirrel.Eq{"s.owner_id": filter.OwnerID})
	}
	if len(filter.Statuses) > 0 {
		query = query.Where(squirrel.Eq{"r.status": statusStrings(filter.Statuses)})
	}
	// Date window filtering (inclusive intersection)
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"r.end_date": daterange.Date(*filter.From)})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"r.start_date": daterange.Date(*filter.To)})
	}

	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	query = query.OrderBy("r.start_date "+orderDir, "r.id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, apperror.Storage(err, "list reservations failed")
	}
	defer rows.Close()

	var (
		result []*Reservation
		total  int
	)
	for rows.Next() {
		res, err := scanReservation(rows, &total)
		if err != nil {
			return nil, 0, apperror.Storage(err, "scan reservation failed")
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Storage(err, "list reservations failed")
	}
	return result, total, nil
}

func (r *pgxRepository) ActiveInRange(ctx context.Context, spaceID string, window daterange.Range) ([]*Reservation, error) {
	query, args, err := selectReservations().
		Where(squirrel.Eq{"r.space_id": spaceID}).
		Where(squirrel.Eq{"r.status": statusStrings(ActiveStatuses)}).
		Where(squirrel.LtOrEq{"r.start_date": window.End}).
		Where(squirrel.GtOrEq{"r.end_date": window.Start}).
		OrderBy("r.start_date").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active reservations query failed: %w", err)
	}
	return r.query(ctx, query, args, "list active reservations failed")
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (*Reservation, error) {
	query, args, err := psql().Update("public.reservations").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update reservation status query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ExclusionViolation {
			return nil, fmt.Errorf("reservation %s: %w", id, ErrDatesUnavailable)
		}
		return nil, apperror.Storage(err, "update reservation status failed")
	}
	if ct.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("reservation %s expected %s: %w", id, from, ErrStatusChanged)
	}
	return r.GetByID(ctx, id)
}

func (r *pgxRepository) ListEndedBefore(ctx context.Context, status Status, date time.Time, limit int) ([]*Reservation, error) {
	q := selectReservations().
		Where(squirrel.Eq{"r.status": status}).
		Where(squirrel.Lt{"r.end_date": daterange.Date(date)}).
		OrderBy("r.end_date")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build ended reservations query failed: %w", err)
	}
	return r.query(ctx, query, args, "list ended reservations failed")
}

func (r *pgxRepository) CountByStatus(ctx context.Context, filter StatsFilter) (map[Status]int, error) {
	q := psql().Select("r.status", "count(*)").
		From("public.reservations r").
		Join("public.spaces s ON r.space_id = s.id").
		GroupBy("r.status")
	if filter.SpaceID != "" {
		q = q.Where(squirrel.Eq{"r.space_id": filter.SpaceID})
	}
	if filter.TenantID != "" {
		q = q.Where(squirrel.Eq{"r.tenant_id": filter.TenantID})
	}
	if filter.OwnerID != "" {
		q = q.Where(squirrel.Eq{"s.owner_id": filter.OwnerID})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Storage(err, "count reservations failed")
	}
	defer rows.Close()

	counts := make(map[Status]int, len(AllStatuses))
	for rows.Next() {
		var (
			st Status
			n  int
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, apperror.Storage(err, "scan reservation count failed")
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage(err, "count reservations failed")
	}
	return counts, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	query, args, err := psql().Delete("public.reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete reservation query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return apperror.Storage(err, "delete reservation failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) query(ctx context.Context, query string, args []any, failMsg string) ([]*Reservation, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperror.Storage(err, failMsg)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, apperror.Storage(err, failMsg)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Storage(err, failMsg)
	}
	return result, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
