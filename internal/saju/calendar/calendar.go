// Package calendar derives the four-pillar (saju) stem-branch structure from
// a birth date and optional birth time.
//
// The derivation is a sexagenary-cycle arithmetic approximation anchored to a
// fixed epoch, with the month pillar keyed to the civil month. It is not a
// lunisolar ephemeris: charts near solar-term boundaries may differ from
// almanac data. This is a known accuracy limitation of the approach, kept
// deliberately.
package calendar

import "time"

// Pillar is one stem-branch pair of a chart.
type Pillar struct {
	Stem   Stem
	Branch Branch
}

// Chart is the four-pillar structure. Hour is nil when the birth time is
// unknown; downstream consumers must treat a 3-pillar chart as a smaller
// sample, never as an error.
type Chart struct {
	Year  Pillar
	Month Pillar
	Day   Pillar
	Hour  *Pillar
}

// TimeOfDay is a clock time on the birth date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// epoch is taken as day zero of the sexagenary day cycle (a gap-ja day).
var epoch = time.Date(1984, time.February, 2, 0, 0, 0, 0, time.UTC)

// Compute builds the chart for a birth date. birthTime may be nil, in which
// case the hour pillar is omitted.
func Compute(date time.Time, birthTime *TimeOfDay) Chart {
	year := date.Year()
	month := int(date.Month())

	chart := Chart{
		Year:  yearPillar(year),
		Month: monthPillar(year, month),
		Day:   dayPillar(date),
	}

	if birthTime != nil {
		hp := hourPillar(chart.Day.Stem, *birthTime)
		chart.Hour = &hp
	}
	return chart
}

// DayMaster returns the heavenly stem of the day pillar, the reference point
// for strength and favorable-element analysis.
func (c Chart) DayMaster() Stem {
	return c.Day.Stem
}

// Pillars returns the known pillars in year, month, day, hour order.
func (c Chart) Pillars() []Pillar {
	pillars := []Pillar{c.Year, c.Month, c.Day}
	if c.Hour != nil {
		pillars = append(pillars, *c.Hour)
	}
	return pillars
}

func yearPillar(year int) Pillar {
	return Pillar{
		Stem:   Stem(mod(year-4, 10)),
		Branch: Branch(mod(year-4, 12)),
	}
}

func monthPillar(year, month int) Pillar {
	base := monthStemBases[mod(year-4, 10)%5]
	// offset counts months since February, the first month of the cycle.
	offset := mod(month-2, 12)
	return Pillar{
		Stem:   Stem(mod(int(base)+offset, 10)),
		Branch: monthBranches[month],
	}
}

func dayPillar(date time.Time) Pillar {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	idx := int(day.Sub(epoch).Hours() / 24)
	return Pillar{
		Stem:   Stem(mod(idx, 10)),
		Branch: Branch(mod(idx, 12)),
	}
}

// hourPillar maps the birth time onto twelve 2-hour windows. The ja window
// starts at 23:30, so each slot boundary sits on the half hour.
func hourPillar(dayStem Stem, t TimeOfDay) Pillar {
	minutes := t.Hour*60 + t.Minute
	slot := ((minutes + 30) / 120) % 12
	return Pillar{
		Stem:   Stem(mod((int(dayStem)%5)*2+slot, 10)),
		Branch: Branch(slot),
	}
}

func mod(n, m int) int {
	r := n % m
	if r < 0 {
		r += m
	}
	return r
}
