package dieselvk

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
)

const MaxFrameTimes = 100

// FrameStats is a fixed ring of the last MaxFrameTimes frame durations in
// seconds. Unfilled entries read as zero.
type FrameStats struct {
	times [MaxFrameTimes]float32
	next  int
}

func NewFrameStats() *FrameStats {
	return &FrameStats{}
}

func (s *FrameStats) Record(d time.Duration) {
	s.times[s.next] = float32(d.Seconds())
	s.next = (s.next + 1) % MaxFrameTimes
}

// DisplayFrameTimes returns the ring oldest first.
func (s *FrameStats) DisplayFrameTimes() []float32 {
	out := make([]float32, MaxFrameTimes)
	for i := range out {
		out[i] = s.times[(s.next+i)%MaxFrameTimes]
	}
	return out
}

// FPS converts frame times to rates; a zero time maps to zero.
func FPS(times []float32) []float32 {
	out := make([]float32, len(times))
	for i, t := range times {
		if t > 0 {
			out[i] = 1 / t
		}
	}
	return out
}

// UpperBound is a plot ceiling: the largest value plus a fifth, never below
// half a millisecond.
func UpperBound(data []float32) float32 {
	var hi float32
	for _, v := range data {
		hi = max(hi, v)
	}
	return max(hi*1.2, 0.0005)
}

type FrameSummary struct {
	Average, Min, Max float32
	AverageFPS        float32
}

func (s *FrameStats) Summary() FrameSummary {
	times := s.DisplayFrameTimes()
	fps := FPS(times)
	sum := FrameSummary{Min: times[0], Max: times[0]}
	var total, totalFPS float32
	for i, t := range times {
		total += t
		totalFPS += fps[i]
		sum.Min = min(sum.Min, t)
		sum.Max = max(sum.Max, t)
	}
	sum.Average = total / MaxFrameTimes
	sum.AverageFPS = totalFPS / MaxFrameTimes
	return sum
}

// ExportCSV writes one "milliseconds,fps" row per ring entry, oldest first.
func (s *FrameStats) ExportCSV(w io.Writer) error {
	times := s.DisplayFrameTimes()
	fps := FPS(times)
	cw := csv.NewWriter(w)
	for i, t := range times {
		row := []string{
			strconv.FormatFloat(float64(t*1000), 'g', -1, 32),
			strconv.FormatFloat(float64(fps[i]), 'g', -1, 32),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write frame stats")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush frame stats")
}
