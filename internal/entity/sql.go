package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
)

// SQLRepository stores weather forecasts in Postgres through database/sql.
// Open the handle with the pgx stdlib driver: sql.Open("pgx", dsn).
type SQLRepository struct {
	db     *sql.DB
	schema Schema[WeatherForecast]
	clock  clockwork.Clock
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SQLRepository)

// WithTable overrides the default table.
func WithTable(table string) RepositoryOption {
	return func(r *SQLRepository) {
		if table != "" {
			r.schema.Table = table
		}
	}
}

// WithClock sets the clock used by the lifecycle hooks.
func WithClock(c clockwork.Clock) RepositoryOption {
	return func(r *SQLRepository) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewSQLRepository constructs a repository with defaults.
func NewSQLRepository(db *sql.DB, opts ...RepositoryOption) *SQLRepository {
	r := &SQLRepository{
		db:     db,
		schema: WeatherForecastSchema,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Migrate creates the table if it does not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("weather forecast repo: nil db")
	}
	if _, err := r.db.ExecContext(ctx, r.schema.CreateTableSQL()); err != nil {
		return fmt.Errorf("create table %s: %w", r.schema.Table, err)
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, w *WeatherForecast) error {
	if r == nil || r.db == nil {
		return errors.New("weather forecast repo: nil db")
	}
	if w == nil {
		return ErrNilEntity
	}

	row := *w
	row.BeforePersist(r.clock.Now().UTC())
	row.Version = 1

	query, args := r.schema.InsertSQL()
	if err := r.db.QueryRowContext(ctx, query, args(&row)...).Scan(&row.ID); err != nil {
		return fmt.Errorf("insert weather forecast: %w", err)
	}
	*w = row
	return nil
}

func (r *SQLRepository) Update(ctx context.Context, w *WeatherForecast) error {
	if r == nil || r.db == nil {
		return errors.New("weather forecast repo: nil db")
	}
	if w == nil {
		return ErrNilEntity
	}

	row := *w
	row.BeforeUpdate(r.clock.Now().UTC())

	query, args := r.schema.UpdateSQL()
	res, err := r.db.ExecContext(ctx, query, args(&row)...)
	if err != nil {
		return fmt.Errorf("update weather forecast %d: %w", w.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update weather forecast %d: %w", w.ID, err)
	}
	if n == 0 {
		// Either the row is gone or someone else bumped the version.
		if _, err := r.FindByID(ctx, w.ID); err != nil {
			return err
		}
		return ErrStaleVersion
	}

	row.Version++
	*w = row
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	if r == nil || r.db == nil {
		return errors.New("weather forecast repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, r.schema.DeleteSQL(), id)
	if err != nil {
		return fmt.Errorf("delete weather forecast %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete weather forecast %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (WeatherForecast, error) {
	if r == nil || r.db == nil {
		return WeatherForecast{}, errors.New("weather forecast repo: nil db")
	}

	var w WeatherForecast
	row := r.db.QueryRowContext(ctx, r.schema.SelectSQL(r.schema.ByIDClause()), id)
	if err := row.Scan(r.schema.ScanDest(&w)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WeatherForecast{}, ErrNotFound
		}
		return WeatherForecast{}, fmt.Errorf("find weather forecast %d: %w", id, err)
	}
	return w, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]WeatherForecast, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("weather forecast repo: nil db")
	}

	query := r.schema.SelectSQL("") + " ORDER BY " + r.schema.identity().Name
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list weather forecasts: %w", err)
	}
	defer rows.Close()

	var out []WeatherForecast
	for rows.Next() {
		var w WeatherForecast
		if err := rows.Scan(r.schema.ScanDest(&w)...); err != nil {
			return nil, fmt.Errorf("scan weather forecast: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
