package timeseries

import (
	"math"
	"sort"
	"time"
)

// Frame is a date-by-stock matrix of float64 observations (a pivot table).
// Rows are sorted unique dates, columns are sorted unique stock codes, cells
// default to NaN.
type Frame struct {
	dates   []time.Time
	codes   []string
	dateIdx map[int64]int
	codeIdx map[string]int
	data    [][]float64 // [dateIdx][codeIdx]
}

// NewFrame builds an all-NaN frame over the given index and columns.
func NewFrame(dates []time.Time, codes []string) *Frame {
	uniqDates := make([]time.Time, 0, len(dates))
	seen := make(map[int64]struct{}, len(dates))
	for _, d := range dates {
		n := Normalize(d)
		if _, ok := seen[n.Unix()]; ok {
			continue
		}
		seen[n.Unix()] = struct{}{}
		uniqDates = append(uniqDates, n)
	}
	sort.Slice(uniqDates, func(i, j int) bool { return uniqDates[i].Before(uniqDates[j]) })

	uniqCodes := make([]string, 0, len(codes))
	seenCodes := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		if _, ok := seenCodes[c]; ok {
			continue
		}
		seenCodes[c] = struct{}{}
		uniqCodes = append(uniqCodes, c)
	}
	sort.Strings(uniqCodes)

	f := &Frame{
		dates:   uniqDates,
		codes:   uniqCodes,
		dateIdx: make(map[int64]int, len(uniqDates)),
		codeIdx: make(map[string]int, len(uniqCodes)),
		data:    make([][]float64, len(uniqDates)),
	}
	for i, d := range uniqDates {
		f.dateIdx[d.Unix()] = i
		row := make([]float64, len(uniqCodes))
		for j := range row {
			row[j] = math.NaN()
		}
		f.data[i] = row
	}
	for j, c := range uniqCodes {
		f.codeIdx[c] = j
	}
	return f
}

// Dates returns a copy of the date index.
func (f *Frame) Dates() []time.Time {
	out := make([]time.Time, len(f.dates))
	copy(out, f.dates)
	return out
}

// Codes returns a copy of the column names.
func (f *Frame) Codes() []string {
	out := make([]string, len(f.codes))
	copy(out, f.codes)
	return out
}

// NumDates returns the row count.
func (f *Frame) NumDates() int { return len(f.dates) }

// HasCode reports whether the column exists.
func (f *Frame) HasCode(code string) bool {
	_, ok := f.codeIdx[code]
	return ok
}

// HasDate reports whether the date is in the index.
func (f *Frame) HasDate(date time.Time) bool {
	_, ok := f.dateIdx[Normalize(date).Unix()]
	return ok
}

// Set stores a cell; the date and code must already exist in the axes.
func (f *Frame) Set(date time.Time, code string, value float64) {
	i, ok := f.dateIdx[Normalize(date).Unix()]
	if !ok {
		return
	}
	j, ok := f.codeIdx[code]
	if !ok {
		return
	}
	f.data[i][j] = value
}

// Get returns a cell, NaN when either axis label is absent.
func (f *Frame) Get(date time.Time, code string) float64 {
	i, ok := f.dateIdx[Normalize(date).Unix()]
	if !ok {
		return math.NaN()
	}
	j, ok := f.codeIdx[code]
	if !ok {
		return math.NaN()
	}
	return f.data[i][j]
}

// Column extracts one stock's series.
func (f *Frame) Column(code string) *Series {
	j, ok := f.codeIdx[code]
	if !ok {
		return Empty()
	}
	values := make([]float64, len(f.dates))
	for i := range f.dates {
		values[i] = f.data[i][j]
	}
	return NewSeries(f.Dates(), values)
}

// Reindex projects the frame onto a new date index; missing dates become
// NaN rows.
func (f *Frame) Reindex(dates []time.Time) *Frame {
	out := NewFrame(dates, f.codes)
	for _, d := range out.dates {
		if i, ok := f.dateIdx[d.Unix()]; ok {
			copy(out.data[out.dateIdx[d.Unix()]], f.data[i])
		}
	}
	return out
}

// ForwardFill fills NaN cells column-wise from the last seen value, carrying
// at most limit consecutive rows (limit <= 0 means unlimited).
func (f *Frame) ForwardFill(limit int) *Frame {
	out := f.clone()
	for j := range out.codes {
		last := math.NaN()
		run := 0
		for i := range out.dates {
			v := out.data[i][j]
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
			out.data[i][j] = last
		}
	}
	return out
}

// PctChange computes per-column v_t / v_{t-1} - 1 over index positions.
func (f *Frame) PctChange() *Frame {
	out := NewFrame(f.dates, f.codes)
	for j := range f.codes {
		for i := range f.dates {
			if i == 0 {
				continue
			}
			prev := f.data[i-1][j]
			cur := f.data[i][j]
			if math.IsNaN(prev) || math.IsNaN(cur) || prev == 0 {
				continue
			}
			out.data[i][j] = cur/prev - 1
		}
	}
	return out
}

// UnionDates merges two date indices.
func UnionDates(a, b []time.Time) []time.Time {
	seen := make(map[int64]time.Time, len(a)+len(b))
	for _, d := range a {
		n := Normalize(d)
		seen[n.Unix()] = n
	}
	for _, d := range b {
		n := Normalize(d)
		seen[n.Unix()] = n
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (f *Frame) clone() *Frame {
	out := NewFrame(f.dates, f.codes)
	for i := range f.data {
		copy(out.data[i], f.data[i])
	}
	return out
}
