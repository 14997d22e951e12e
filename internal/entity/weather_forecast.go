// Package entity holds the relational form of a weather forecast and the
// repositories that persist it.
package entity

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/forecast-crud/internal/forecast"
)

var (
	ErrNotFound     = errors.New("weather forecast not found")
	ErrStaleVersion = errors.New("weather forecast was modified concurrently")
	ErrNilEntity    = errors.New("nil weather forecast")
)

// WeatherForecast is one row of the weatherforecast table. Rows are equal
// when their IDs are.
type WeatherForecast struct {
	ID                 int64
	City               string
	Date               forecast.Date
	TemperatureCelsius int
	Description        string

	// Version is the optimistic lock counter; the first stored version is 1.
	Version    int
	CreateTime time.Time
	UpdateTime *time.Time
}

// TemperatureFahrenheit is derived from the Celsius value.
func (w WeatherForecast) TemperatureFahrenheit() int {
	return forecast.CelsiusToFahrenheit(w.TemperatureCelsius)
}

// Equal compares identities only.
func (w WeatherForecast) Equal(o WeatherForecast) bool {
	return w.ID == o.ID
}

// BeforePersist runs before the first insert.
func (w *WeatherForecast) BeforePersist(now time.Time) {
	w.CreateTime = now
}

// BeforeUpdate runs before every update.
func (w *WeatherForecast) BeforeUpdate(now time.Time) {
	w.UpdateTime = &now
}

// FromRecord copies the editable fields of a document store record.
func FromRecord(r forecast.Record) WeatherForecast {
	return WeatherForecast{
		City:               r.City,
		Date:               r.Date,
		TemperatureCelsius: r.TemperatureCelsius,
		Description:        r.Description,
	}
}

// Repository persists weather forecasts.
type Repository interface {
	// Create inserts w and fills in its ID, Version and CreateTime.
	Create(ctx context.Context, w *WeatherForecast) error
	// Update writes w if its Version matches the stored one and bumps it.
	Update(ctx context.Context, w *WeatherForecast) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (WeatherForecast, error)
	// List returns every row ordered by ID.
	List(ctx context.Context) ([]WeatherForecast, error)
}
