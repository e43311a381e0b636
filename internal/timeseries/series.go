// Package timeseries provides the owned, explicit time-indexed containers the
// analytics engines compute on. Missing observations are NaN; every operation
// returns a new container and never aliases caller memory.
package timeseries

import (
	"math"
	"sort"
	"time"
)

// Normalize truncates a timestamp to its calendar date in UTC. All series
// and frame indices are normalized dates.
func Normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a normalized date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Series is a date-indexed float64 vector, sorted ascending by date with
// unique index entries. NaN marks a missing observation.
type Series struct {
	dates  []time.Time
	values []float64
}

// NewSeries builds a series from parallel slices. Input is copied, sorted by
// date; on duplicate dates the last value wins.
func NewSeries(dates []time.Time, values []float64) *Series {
	if len(dates) != len(values) {
		panic("timeseries: dates and values length mismatch")
	}

	type pair struct {
		d time.Time
		v float64
	}
	pairs := make([]pair, len(dates))
	for i := range dates {
		pairs[i] = pair{Normalize(dates[i]), values[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].d.Before(pairs[j].d) })

	s := &Series{
		dates:  make([]time.Time, 0, len(pairs)),
		values: make([]float64, 0, len(pairs)),
	}
	for _, p := range pairs {
		if n := len(s.dates); n > 0 && s.dates[n-1].Equal(p.d) {
			s.values[n-1] = p.v
			continue
		}
		s.dates = append(s.dates, p.d)
		s.values = append(s.values, p.v)
	}
	return s
}

// Empty returns a zero-length series.
func Empty() *Series {
	return &Series{}
}

// Len returns the number of observations including NaN slots.
func (s *Series) Len() int { return len(s.dates) }

// Dates returns a copy of the index.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, len(s.dates))
	copy(out, s.dates)
	return out
}

// Values returns a copy of the data.
func (s *Series) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// At returns the i-th (date, value) pair.
func (s *Series) At(i int) (time.Time, float64) {
	return s.dates[i], s.values[i]
}

// Get returns the value at a date, or NaN when the date is absent.
func (s *Series) Get(date time.Time) float64 {
	d := Normalize(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(d) })
	if i < len(s.dates) && s.dates[i].Equal(d) {
		return s.values[i]
	}
	return math.NaN()
}

// Contains reports whether the date is in the index.
func (s *Series) Contains(date time.Time) bool {
	return s.indexOf(date) >= 0
}

func (s *Series) indexOf(date time.Time) int {
	d := Normalize(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(d) })
	if i < len(s.dates) && s.dates[i].Equal(d) {
		return i
	}
	return -1
}

// Slice returns the observations with begin <= date <= end.
func (s *Series) Slice(begin, end time.Time) *Series {
	b, e := Normalize(begin), Normalize(end)
	out := Empty()
	for i, d := range s.dates {
		if d.Before(b) || d.After(e) {
			continue
		}
		out.dates = append(out.dates, d)
		out.values = append(out.values, s.values[i])
	}
	return out
}

// Shift moves values forward by n index positions (n > 0); the vacated head
// becomes NaN. Negative n shifts backward.
func (s *Series) Shift(n int) *Series {
	out := &Series{
		dates:  append([]time.Time(nil), s.dates...),
		values: make([]float64, len(s.values)),
	}
	for i := range out.values {
		j := i - n
		if j < 0 || j >= len(s.values) {
			out.values[i] = math.NaN()
		} else {
			out.values[i] = s.values[j]
		}
	}
	return out
}

// PctChange returns v_t / v_{t-1} - 1 with a NaN head.
func (s *Series) PctChange() *Series {
	out := &Series{
		dates:  append([]time.Time(nil), s.dates...),
		values: make([]float64, len(s.values)),
	}
	for i := range out.values {
		if i == 0 || s.values[i-1] == 0 {
			out.values[i] = math.NaN()
			continue
		}
		out.values[i] = s.values[i]/s.values[i-1] - 1
	}
	return out
}

// ForwardFill replaces NaN runs with the last seen value, carrying it across
// at most limit consecutive slots (limit <= 0 means unlimited).
func (s *Series) ForwardFill(limit int) *Series {
	out := &Series{
		dates:  append([]time.Time(nil), s.dates...),
		values: append([]float64(nil), s.values...),
	}
	last := math.NaN()
	run := 0
	for i, v := range out.values {
		if !math.IsNaN(v) {
			last = v
			run = 0
			continue
		}
		run++
		if math.IsNaN(last) {
			continue
		}
		if limit > 0 && run > limit {
			continue
		}
		out.values[i] = last
	}
	return out
}

// Reindex projects the series onto a new date index; dates absent from the
// source become NaN.
func (s *Series) Reindex(dates []time.Time) *Series {
	out := &Series{
		dates:  make([]time.Time, len(dates)),
		values: make([]float64, len(dates)),
	}
	for i, d := range dates {
		out.dates[i] = Normalize(d)
		out.values[i] = s.Get(d)
	}
	return out
}

// DropNaN returns the series without missing observations.
func (s *Series) DropNaN() *Series {
	out := Empty()
	for i, v := range s.values {
		if math.IsNaN(v) {
			continue
		}
		out.dates = append(out.dates, s.dates[i])
		out.values = append(out.values, v)
	}
	return out
}

// Set stores a value at a date, inserting in order when absent.
func (s *Series) Set(date time.Time, value float64) {
	d := Normalize(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(d) })
	if i < len(s.dates) && s.dates[i].Equal(d) {
		s.values[i] = value
		return
	}
	s.dates = append(s.dates, time.Time{})
	s.values = append(s.values, 0)
	copy(s.dates[i+1:], s.dates[i:])
	copy(s.values[i+1:], s.values[i:])
	s.dates[i] = d
	s.values[i] = value
}

// Mean returns the NaN-skipping average of the observations between begin
// and end inclusive, or NaN when the span holds none.
func (s *Series) Mean(begin, end time.Time) float64 {
	b, e := Normalize(begin), Normalize(end)
	var sum float64
	var n int
	for i, d := range s.dates {
		if d.Before(b) || d.After(e) {
			continue
		}
		if math.IsNaN(s.values[i]) {
			continue
		}
		sum += s.values[i]
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}
