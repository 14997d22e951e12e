package cli

import (
	"encoding/json"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/i474232898/forecast-crud/internal/entity"
	"github.com/i474232898/forecast-crud/internal/forecast"
)

func (c *Commands) renderForecasts(w io.Writer, list []forecast.Record) error {
	if c.output == "json" {
		return writeJSON(w, list)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Name", "City", "Date", "Temp C", "Temp F", "Description"})
	for _, r := range list {
		table.Append([]string{
			r.Name,
			r.City,
			r.Date.String(),
			strconv.Itoa(r.TemperatureCelsius),
			strconv.Itoa(r.TemperatureFahrenheit()),
			r.Description,
		})
	}
	table.Render()
	return nil
}

func (c *Commands) renderRows(w io.Writer, rows []entity.WeatherForecast) error {
	if c.output == "json" {
		return writeJSON(w, rows)
	}

	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "City", "Date", "Temp C", "Temp F", "Description", "Version"})
	for _, r := range rows {
		table.Append([]string{
			strconv.FormatInt(r.ID, 10),
			r.City,
			r.Date.String(),
			strconv.Itoa(r.TemperatureCelsius),
			strconv.Itoa(r.TemperatureFahrenheit()),
			r.Description,
			strconv.Itoa(r.Version),
		})
	}
	table.Render()
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
