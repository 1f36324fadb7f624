package display

import (
	"bytes"
	"slices"
	"testing"

	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
)

func celsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		hour, minute int
		want         string
	}{
		{9, 5, "09:05"},
		{14, 30, "14:30"},
		{0, 0, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatTime(tt.hour, tt.minute); got != tt.want {
			t.Errorf("FormatTime(%d, %d) = %q, want %q", tt.hour, tt.minute, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate(4, 7, 0); got != "04/07" {
		t.Errorf("FormatDate without year = %q, want 04/07", got)
	}
	if got := FormatDate(4, 7, 2025); got != "04/07/2025" {
		t.Errorf("FormatDate with year = %q, want 04/07/2025", got)
	}
}

func TestFormatTemperature(t *testing.T) {
	tests := []struct {
		celsius float64
		unit    Unit
		want    string
	}{
		{25.5, Celsius, "25.5°C"},
		{25.0, Fahrenheit, "77.0°F"},
		{0, Fahrenheit, "32.0°F"},
	}
	for _, tt := range tests {
		if got := FormatTemperature(celsius(tt.celsius), tt.unit); got != tt.want {
			t.Errorf("FormatTemperature(%v, %s) = %q, want %q", tt.celsius, tt.unit, got, tt.want)
		}
	}
}

func TestParseUnit(t *testing.T) {
	for in, want := range map[string]Unit{"": Celsius, "c": Celsius, "F": Fahrenheit, "f": Fahrenheit} {
		got, err := ParseUnit(in)
		if err != nil || got != want {
			t.Errorf("ParseUnit(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseUnit("K"); err == nil {
		t.Error("ParseUnit(K) should fail")
	}
}

func TestFormatPressure(t *testing.T) {
	if got := FormatPressure(999 * physic.Pascal); got != "999Pa" {
		t.Errorf("FormatPressure(999Pa) = %q, want 999Pa", got)
	}
	if got := FormatPressure(101325 * physic.Pascal); got != "101.3kPa" {
		t.Errorf("FormatPressure(101325Pa) = %q, want 101.3kPa", got)
	}
}

func TestFormatHumidity(t *testing.T) {
	if got := FormatHumidity(480310 * physic.MicroRH); got != "48.0%" {
		t.Errorf("FormatHumidity(48.031%%rH) = %q, want 48.0%%", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		text  string
		limit int
		want  string
	}{
		{"Hello", 10, "Hello"},
		{"Hello World!", 12, "Hello World!"},
		{"Hello World!", 10, "Hello W..."},
		{"Temp: 22.5°C", 12, "Temp: 22.5°C"},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.text, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
		}
	}
}

func TestLines(t *testing.T) {
	result := models.PollResult{
		SensorID:    "board-01",
		Time:        models.RTCTime{Year: 2025, Month: 7, Day: 8, Hour: 12, Minute: 30},
		Status:      models.StatusReady,
		ClockStatus: models.StatusReady,
		Reading: models.Reading{
			Temperature: 22.47,
			Pressure:    1013.41,
			Humidity:    48.031,
			AirQuality:  models.AirQualityModeratelyPolluted,
		},
	}

	want := []string{
		"12:30 08/07/2025",
		"Temp: 22.5°C",
		"Feel: 22.5°C",
		"Pres: 101.3kPa",
		"Humi: 48.0%",
		"Air: Moderate...",
	}
	if got := Lines(result, DefaultWidth, Celsius); !slices.Equal(got, want) {
		t.Errorf("Lines() =\n%q\nwant\n%q", got, want)
	}
}

func TestLines_Degraded(t *testing.T) {
	result := models.PollResult{Status: models.StatusNotResponding, ClockStatus: models.StatusNotResponding}

	want := []string{"--:-- --/--/----", "Sensor: NOT_R..."}
	if got := Lines(result, DefaultWidth, Celsius); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}
}

func TestSink_Publish(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf, 0, Fahrenheit, nil, zerolog.Nop())

	sink.Publish(models.PollResult{
		Time:    models.RTCTime{Year: 2025, Month: 7, Day: 8, Hour: 9, Minute: 5},
		Status:  models.StatusReady,
		Reading: models.Reading{Temperature: 25, Pressure: 1000, Humidity: 40},
	})

	want := "09:05 08/07/2025\nTemp: 77.0°F\nFeel: 77.0°F\nPres: 100.0kPa\nHumi: 40.0%\nAir: Unknown\n\n"
	if buf.String() != want {
		t.Errorf("Publish wrote %q, want %q", buf.String(), want)
	}
}

func TestLines_HeatIndex(t *testing.T) {
	result := models.PollResult{
		Time:    models.RTCTime{Year: 2025, Month: 7, Day: 8, Hour: 15},
		Status:  models.StatusReady,
		Reading: models.Reading{Temperature: 30, Pressure: 1013.25, Humidity: 70},
	}

	lines := Lines(result, DefaultWidth, Celsius)
	if len(lines) != 6 || lines[2] != "Feel: 30.9°C" {
		t.Errorf("Lines() = %q, want a Feel: 30.9°C line", lines)
	}
}

// fakeHistory serves a fixed slice, newest first
type fakeHistory []models.PollResult

func (h fakeHistory) Recent(n int) []models.PollResult {
	return h[:min(n, len(h))]
}

func (h fakeHistory) LatestReading() (models.PollResult, bool) {
	for _, r := range h {
		if r.HasReading() {
			return r, true
		}
	}
	return models.PollResult{}, false
}

func reading(temp, iaq float64) models.PollResult {
	return models.PollResult{
		Status:  models.StatusReady,
		Reading: models.Reading{Temperature: temp, Pressure: 1013.25, Humidity: 45, GasResistance: 50000, IAQ: iaq},
	}
}

func TestAirTrend(t *testing.T) {
	failed := models.PollResult{Status: models.StatusNotResponding}

	tests := []struct {
		name   string
		recent []models.PollResult
		want   Trend
	}{
		{"too few", []models.PollResult{reading(22, 40), reading(22, 30)}, TrendUnknown},
		{"worsening", []models.PollResult{reading(22, 80), reading(22, 60), reading(22, 50)}, TrendWorsening},
		{"improving", []models.PollResult{reading(22, 20), reading(22, 40), reading(22, 50)}, TrendImproving},
		{"stable", []models.PollResult{reading(22, 55), reading(22, 80), reading(22, 50)}, TrendStable},
		{"skips failed polls", []models.PollResult{reading(22, 90), failed, reading(22, 60), failed, reading(22, 50)}, TrendWorsening},
		{"only last three count", []models.PollResult{reading(22, 50), reading(22, 50), reading(22, 50), reading(22, 0)}, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AirTrend(tt.recent); got != tt.want {
				t.Errorf("AirTrend() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAverageTemperature(t *testing.T) {
	if _, ok := AverageTemperature([]models.PollResult{{Status: models.StatusNotResponding}}); ok {
		t.Error("AverageTemperature() without readings should report false")
	}

	avg, ok := AverageTemperature([]models.PollResult{reading(21, 0), {Status: models.StatusNotResponding}, reading(24, 0)})
	if !ok {
		t.Fatal("AverageTemperature() found no readings")
	}
	if got := FormatTemperature(avg, Celsius); got != "22.5°C" {
		t.Errorf("AverageTemperature() = %s, want 22.5°C", got)
	}
}

func TestSink_PublishWithHistory(t *testing.T) {
	current := reading(22, 80)
	current.Time = models.RTCTime{Year: 2025, Month: 7, Day: 8, Hour: 9, Minute: 5}
	hist := fakeHistory{current, reading(23, 60), reading(24, 50)}

	var buf bytes.Buffer
	NewSink(&buf, 0, Celsius, hist, zerolog.Nop()).Publish(current)

	want := "09:05 08/07/2025\nTemp: 22.0°C\nFeel: 22.0°C\nPres: 101.3kPa\nHumi: 45.0%\nAir: Unknown\n" +
		"Avg: 23.0°C\nTrend: worse\n\n"
	if buf.String() != want {
		t.Errorf("Publish wrote %q, want %q", buf.String(), want)
	}
}

func TestSink_PublishDegradedWithHistory(t *testing.T) {
	tests := []struct {
		name string
		hist fakeHistory
		want string
	}{
		{
			name: "no readings yet",
			hist: fakeHistory{{Status: models.StatusNotResponding}},
			want: "--:-- --/--/----\nSensor: NOT_R...\nNo data\n\n",
		},
		{
			name: "last good reading",
			hist: fakeHistory{{Status: models.StatusNotResponding}, reading(21.5, 40)},
			want: "--:-- --/--/----\nSensor: NOT_R...\nLast: 21.5°C\nAvg: 21.5°C\nTrend: --\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewSink(&buf, 0, Celsius, tt.hist, zerolog.Nop()).Publish(models.PollResult{Status: models.StatusNotResponding})

			if buf.String() != tt.want {
				t.Errorf("Publish wrote %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
