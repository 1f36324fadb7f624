package display

import (
	"io"
	"strings"
	"sync"

	"github.com/afroash/airquality-monitor/internal/models"
	"github.com/rs/zerolog"
)

// Lines renders one poll result as display lines, each at most width characters
func Lines(result models.PollResult, width int, unit Unit) []string {
	lines := make([]string, 0, 6)

	if result.Time.IsZero() {
		lines = append(lines, "--:-- --/--/----")
	} else {
		t := result.Time
		lines = append(lines, FormatTime(t.Hour, t.Minute)+" "+FormatDate(t.Day, t.Month, t.Year))
	}

	if !result.HasReading() {
		lines = append(lines, "Sensor: "+result.Status.String())
	} else {
		r := result.Reading
		env := r.Env()
		lines = append(lines,
			"Temp: "+FormatTemperature(env.Temperature, unit),
			"Feel: "+FormatTemperature(r.ApparentTemperature(), unit),
			"Pres: "+FormatPressure(env.Pressure),
			"Humi: "+FormatHumidity(env.Humidity),
			"Air: "+r.AirQuality.String(),
		)
	}

	for i, l := range lines {
		lines[i] = Truncate(l, width)
	}
	return lines
}

// Sink writes every poll result to w as a block of display lines. With a
// history attached the block ends with the recent-readings view.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	width   int
	unit    Unit
	history History
	logger  zerolog.Logger
}

// NewSink creates a text display sink. A width of zero uses DefaultWidth
// and a nil history leaves out the recent-readings view.
func NewSink(w io.Writer, width int, unit Unit, history History, logger zerolog.Logger) *Sink {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Sink{w: w, width: width, unit: unit, history: history, logger: logger}
}

// Publish implements monitor.Sink
func (s *Sink) Publish(result models.PollResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lines := Lines(result, s.width, s.unit)
	if s.history != nil {
		lines = append(lines, s.recentLines(result)...)
	}

	frame := strings.Join(lines, "\n") + "\n\n"
	if _, err := io.WriteString(s.w, frame); err != nil {
		s.logger.Error().Err(err).Msg("failed to write display frame")
	}
}

// recentLines falls back to the last good temperature when result has no
// reading
func (s *Sink) recentLines(result models.PollResult) []string {
	var lines []string
	if !result.HasReading() {
		if last, ok := s.history.LatestReading(); ok {
			lines = append(lines, Truncate("Last: "+FormatTemperature(last.Reading.Env().Temperature, s.unit), s.width))
		} else {
			lines = append(lines, "No data")
		}
	}
	return append(lines, RecentLines(s.history.Recent(RecentCount), s.width, s.unit)...)
}
