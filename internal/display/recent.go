package display

import (
	"periph.io/x/conn/v3/physic"

	"github.com/afroash/airquality-monitor/internal/models"
)

// RecentCount is how many results the recent-readings view covers
const RecentCount = 10

// trendDelta is the IAQ change across three readings that counts as a trend
const trendDelta = 10

// History supplies the recent-readings view. history.Buffer implements it.
type History interface {
	Recent(n int) []models.PollResult
	LatestReading() (models.PollResult, bool)
}

// Trend is the direction air quality moved over the last three readings
type Trend string

const (
	TrendUnknown   Trend = "--"
	TrendImproving Trend = "better"
	TrendWorsening Trend = "worse"
	TrendStable    Trend = "stable"
)

// AirTrend compares the IAQ of the newest and the third newest gas reading
// in recent, which is ordered newest first. A rising index is worsening air.
func AirTrend(recent []models.PollResult) Trend {
	iaq := make([]float64, 0, 3)
	for _, r := range recent {
		if r.HasReading() && r.Reading.HasGas() {
			iaq = append(iaq, r.Reading.IAQ)
		}
		if len(iaq) == 3 {
			break
		}
	}
	if len(iaq) < 3 {
		return TrendUnknown
	}

	switch newest, oldest := iaq[0], iaq[2]; {
	case newest > oldest+trendDelta:
		return TrendWorsening
	case newest < oldest-trendDelta:
		return TrendImproving
	}
	return TrendStable
}

// AverageTemperature is the mean temperature of the results in recent that
// carry a reading
func AverageTemperature(recent []models.PollResult) (physic.Temperature, bool) {
	var sum physic.Temperature
	var n int
	for _, r := range recent {
		if !r.HasReading() {
			continue
		}
		sum += r.Reading.Env().Temperature
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / physic.Temperature(n), true
}

// RecentLines renders the average temperature and air quality trend of
// recent. It returns nothing when no result carries a reading.
func RecentLines(recent []models.PollResult, width int, unit Unit) []string {
	avg, ok := AverageTemperature(recent)
	if !ok {
		return nil
	}
	return []string{
		Truncate("Avg: "+FormatTemperature(avg, unit), width),
		Truncate("Trend: "+string(AirTrend(recent)), width),
	}
}
