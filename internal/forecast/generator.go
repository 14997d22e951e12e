package forecast

import (
	"errors"
	"math/rand/v2"

	"github.com/jonboulle/clockwork"
)

const (
	MinSampleCelsius = -20
	MaxSampleCelsius = 50

	// Sample dates fall 1 to maxSampleDaysAhead days after today.
	maxSampleDaysAhead = 5
)

// ErrNoRecord is returned when there is no record to fill.
var ErrNoRecord = errors.New("no forecast record selected")

var sampleCities = []string{
	"Edmonton", "Calgary", "Red Deer", "Lethbridge", "Regina", "Saskatoon",
	"Winnipeg", "Vancouver", "Victoria", "Kelowna", "Toronto", "Ottawa",
	"Montreal", "Quebec City", "Halifax", "Fredericton", "St. John's",
	"Whitehorse", "Yellowknife", "Iqaluit",
}

var sampleDescriptions = []string{
	"Sunny", "Partly cloudy", "Overcast", "Light rain", "Heavy rain",
	"Thunderstorms", "Light snow", "Blizzard", "Freezing drizzle", "Fog",
	"Windy", "Scattered showers", "Hail", "Clear skies", "Humid",
}

// Generator produces synthetic forecast data.
type Generator struct {
	clock clockwork.Clock
	rnd   *rand.Rand
}

// NewGenerator returns a Generator. A nil clock uses real time and a nil
// source uses a randomly seeded one.
func NewGenerator(clock clockwork.Clock, src rand.Source) *Generator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Generator{clock: clock, rnd: rand.New(src)}
}

// Fill overwrites the editable fields of r with sample values. The key is
// left untouched. On error r is not modified.
func (g *Generator) Fill(r *Record) error {
	if r == nil {
		return ErrNoRecord
	}
	if len(sampleCities) == 0 || len(sampleDescriptions) == 0 {
		return errors.New("sample data is not available")
	}

	today := DateOf(g.clock.Now())
	city := sampleCities[g.rnd.IntN(len(sampleCities))]
	date := today.AddDays(1 + g.rnd.IntN(maxSampleDaysAhead))
	temp := MinSampleCelsius + g.rnd.IntN(MaxSampleCelsius-MinSampleCelsius+1)
	desc := sampleDescriptions[g.rnd.IntN(len(sampleDescriptions))]

	r.City = city
	r.Date = date
	r.TemperatureCelsius = temp
	r.Description = desc
	return nil
}
