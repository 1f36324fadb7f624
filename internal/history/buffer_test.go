package history

import (
	"sync"
	"testing"
	"time"

	"github.com/afroash/airquality-monitor/internal/models"
)

func result(temp float64) models.PollResult {
	return models.PollResult{
		SensorID:    "board-01",
		Status:      models.StatusReady,
		ClockStatus: models.StatusReady,
		Reading:     models.Reading{Temperature: temp, Pressure: 1013.4, Humidity: 45.0},
	}
}

func TestNewBuffer(t *testing.T) {
	buf := NewBuffer(100, true)

	if buf == nil {
		t.Fatal("NewBuffer returned nil")
	}
	if buf.Size() != 0 {
		t.Errorf("Initial size = %d, want 0", buf.Size())
	}
	if got := buf.Recent(5); got != nil {
		t.Errorf("Recent(5) on a new buffer = %v, want nil", got)
	}
}

func TestBuffer_Recent(t *testing.T) {
	buf := NewBuffer(10, true)
	for i := 0; i < 5; i++ {
		buf.Push(result(float64(20 + i)))
	}

	recent := buf.Recent(3)
	if len(recent) != 3 {
		t.Fatalf("Recent(3) returned %d results, want 3", len(recent))
	}
	for i, want := range []float64{24, 23, 22} {
		if recent[i].Reading.Temperature != want {
			t.Errorf("Recent(3)[%d] temp = %v, want %v", i, recent[i].Reading.Temperature, want)
		}
	}

	if all := buf.Recent(10); len(all) != 5 {
		t.Errorf("Recent(10) with 5 available returned %d, want 5", len(all))
	}
	if buf.Size() != 5 {
		t.Errorf("Size after Recent = %d, want 5 (unchanged)", buf.Size())
	}
}

func TestBuffer_LatestReading(t *testing.T) {
	buf := NewBuffer(10, true)

	if _, ok := buf.LatestReading(); ok {
		t.Error("empty buffer should have no latest reading")
	}

	buf.Push(result(21.0))
	buf.Push(models.PollResult{SensorID: "board-01", Status: models.StatusNotResponding})

	got, ok := buf.LatestReading()
	if !ok {
		t.Fatal("LatestReading() found nothing")
	}
	if got.Reading.Temperature != 21.0 {
		t.Errorf("LatestReading() temp = %v, want 21 (degraded result skipped)", got.Reading.Temperature)
	}
}

func TestBuffer_DropOldest(t *testing.T) {
	buf := NewBuffer(3, true)
	for i := 0; i < 3; i++ {
		buf.Push(result(float64(20 + i)))
	}

	if ok := buf.Push(result(99.0)); !ok {
		t.Error("Push should succeed in drop-oldest mode")
	}

	results := buf.Recent(3)
	if results[0].Reading.Temperature != 99.0 {
		t.Errorf("After drop-oldest, newest temp = %v, want 99.0", results[0].Reading.Temperature)
	}
	if results[2].Reading.Temperature != 21.0 {
		t.Errorf("After drop-oldest, oldest temp = %v, want 21.0", results[2].Reading.Temperature)
	}
}

func TestBuffer_DropNewest(t *testing.T) {
	buf := NewBuffer(3, false)
	for i := 0; i < 3; i++ {
		buf.Push(result(float64(20 + i)))
	}

	if ok := buf.Push(result(99.0)); ok {
		t.Error("Push should return false when buffer full and drop-newest")
	}

	results := buf.Recent(3)
	if results[0].Reading.Temperature != 22.0 {
		t.Errorf("Newest temp = %v, want 22.0 (99.0 should be dropped)", results[0].Reading.Temperature)
	}
}

func TestBuffer_Publish(t *testing.T) {
	buf := NewBuffer(5, true)
	buf.Publish(result(22.0))

	if buf.Size() != 1 {
		t.Errorf("Size after Publish = %d, want 1", buf.Size())
	}
}

func TestBuffer_Stats(t *testing.T) {
	buf := NewBuffer(3, true)
	for i := 0; i < 5; i++ {
		buf.Push(result(22.0))
	}

	stats := buf.Stats()
	if stats.TotalPushed != 5 {
		t.Errorf("TotalPushed = %d, want 5", stats.TotalPushed)
	}
	if stats.TotalDropped != 2 {
		t.Errorf("TotalDropped = %d, want 2", stats.TotalDropped)
	}
	if stats.HighWaterMark != 3 {
		t.Errorf("HighWaterMark = %d, want 3", stats.HighWaterMark)
	}
	if stats.LastPushTime.IsZero() {
		t.Error("LastPushTime should be set")
	}
}

func TestBuffer_ThreadSafety(t *testing.T) {
	buf := NewBuffer(1000, true)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				buf.Publish(result(float64(id*100 + j)))
			}
		}(i)
	}

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				buf.Recent(10)
				buf.LatestReading()
				time.Sleep(time.Millisecond)
			}
		}()
	}

	wg.Wait()

	if got := buf.Stats().TotalPushed; got != 1000 {
		t.Errorf("TotalPushed = %d, want 1000", got)
	}
	t.Logf("Final buffer state: %s", buf.String())
}

func BenchmarkBuffer_Push(b *testing.B) {
	buf := NewBuffer(10000, true)
	r := result(22.5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Push(r)
	}
}
