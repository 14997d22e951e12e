package entity

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/i474232898/forecast-crud/internal/forecast"
)

// Column binds one table column to a field of T.
type Column[T any] struct {
	Name    string
	SQLType string

	// Value returns the field value to write.
	Value func(*T) any
	// Dest returns the scan destination for the field.
	Dest func(*T) any

	Identity bool
	Version  bool
	// Immutable columns are written on insert only.
	Immutable bool
}

// Schema describes how T maps onto a table. The SQL repository builds every
// statement from it.
type Schema[T any] struct {
	Table   string
	Columns []Column[T]
}

func (s Schema[T]) identity() Column[T] {
	for _, c := range s.Columns {
		if c.Identity {
			return c
		}
	}
	panic("entity: schema " + s.Table + " has no identity column")
}

func (s Schema[T]) version() Column[T] {
	for _, c := range s.Columns {
		if c.Version {
			return c
		}
	}
	panic("entity: schema " + s.Table + " has no version column")
}

func (s Schema[T]) names(keep func(Column[T]) bool) []string {
	var out []string
	for _, c := range s.Columns {
		if keep(c) {
			out = append(out, c.Name)
		}
	}
	return out
}

// CreateTableSQL returns the DDL for the table.
func (s Schema[T]) CreateTableSQL() string {
	defs := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		defs = append(defs, c.Name+" "+c.SQLType)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", s.Table, strings.Join(defs, ",\n\t"))
}

// InsertSQL returns the insert statement and its argument builder. The
// statement returns the generated identity.
func (s Schema[T]) InsertSQL() (string, func(*T) []any) {
	var cols []Column[T]
	for _, c := range s.Columns {
		if !c.Identity {
			cols = append(cols, c)
		}
	}
	names := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
		marks[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.Table, strings.Join(names, ", "), strings.Join(marks, ", "), s.identity().Name)

	return query, func(v *T) []any {
		args := make([]any, len(cols))
		for i, c := range cols {
			args[i] = c.Value(v)
		}
		return args
	}
}

// UpdateSQL returns an update guarded by the version column. The version is
// incremented by the database.
func (s Schema[T]) UpdateSQL() (string, func(*T) []any) {
	var cols []Column[T]
	for _, c := range s.Columns {
		if !c.Identity && !c.Version && !c.Immutable {
			cols = append(cols, c)
		}
	}
	id, ver := s.identity(), s.version()

	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Name, i+1))
	}
	sets = append(sets, fmt.Sprintf("%s = %s + 1", ver.Name, ver.Name))
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d AND %s = $%d",
		s.Table, strings.Join(sets, ", "), id.Name, len(cols)+1, ver.Name, len(cols)+2)

	return query, func(v *T) []any {
		args := make([]any, 0, len(cols)+2)
		for _, c := range cols {
			args = append(args, c.Value(v))
		}
		return append(args, id.Value(v), ver.Value(v))
	}
}

// SelectSQL returns a select of every column; where may be empty.
func (s Schema[T]) SelectSQL(where string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(s.names(func(Column[T]) bool { return true }), ", "), s.Table)
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

// ByIDClause is the WHERE clause matching the identity to $1.
func (s Schema[T]) ByIDClause() string {
	return s.identity().Name + " = $1"
}

// DeleteSQL deletes by identity.
func (s Schema[T]) DeleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", s.Table, s.ByIDClause())
}

// ScanDest returns the destinations for a SelectSQL row.
func (s Schema[T]) ScanDest(v *T) []any {
	out := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Dest(v)
	}
	return out
}

// WeatherForecastSchema maps WeatherForecast onto the weatherforecast table.
var WeatherForecastSchema = Schema[WeatherForecast]{
	Table: "weatherforecast",
	Columns: []Column[WeatherForecast]{
		{
			Name: "weatherforecast_id", SQLType: "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY", Identity: true,
			Value: func(w *WeatherForecast) any { return w.ID },
			Dest:  func(w *WeatherForecast) any { return &w.ID },
		},
		{
			Name: "city", SQLType: "TEXT",
			Value: func(w *WeatherForecast) any { return w.City },
			Dest:  func(w *WeatherForecast) any { return &w.City },
		},
		{
			Name: "date", SQLType: "DATE",
			Value: func(w *WeatherForecast) any { return dateValue{w.Date} },
			Dest:  func(w *WeatherForecast) any { return &dateScanner{&w.Date} },
		},
		{
			Name: "temperature_celsius", SQLType: "INTEGER NOT NULL",
			Value: func(w *WeatherForecast) any { return w.TemperatureCelsius },
			Dest:  func(w *WeatherForecast) any { return &w.TemperatureCelsius },
		},
		{
			Name: "description", SQLType: "TEXT",
			Value: func(w *WeatherForecast) any { return w.Description },
			Dest:  func(w *WeatherForecast) any { return &w.Description },
		},
		{
			Name: "version", SQLType: "INTEGER NOT NULL", Version: true,
			Value: func(w *WeatherForecast) any { return w.Version },
			Dest:  func(w *WeatherForecast) any { return &w.Version },
		},
		{
			Name: "create_time", SQLType: "TIMESTAMP NOT NULL", Immutable: true,
			Value: func(w *WeatherForecast) any { return w.CreateTime },
			Dest:  func(w *WeatherForecast) any { return &w.CreateTime },
		},
		{
			Name: "update_time", SQLType: "TIMESTAMP",
			Value: func(w *WeatherForecast) any { return w.UpdateTime },
			Dest:  func(w *WeatherForecast) any { return &w.UpdateTime },
		},
	},
}

// dateValue writes a zero date as NULL.
type dateValue struct {
	d forecast.Date
}

func (v dateValue) Value() (driver.Value, error) {
	if v.d.IsZero() {
		return nil, nil
	}
	return v.d.Time, nil
}

// dateScanner reads a nullable DATE column.
type dateScanner struct {
	d *forecast.Date
}

func (s *dateScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.d = forecast.Date{}
	case time.Time:
		*s.d = forecast.DateOf(v)
	case string:
		d, err := forecast.ParseDate(v)
		if err != nil {
			return err
		}
		*s.d = d
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
	return nil
}
