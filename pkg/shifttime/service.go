// Package shifttime reads the packed date/time register groups written by the machine firmware.
// Firmware spreads a timestamp over six registers (second, minute, hour, day, month, year);
// a group is all zero or half written until the shift actually starts or ends.
package shifttime

import (
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/registers"
)

// Selector picks one of the two register groups.
type Selector string

const (
	Start Selector = "start"
	End   Selector = "end"
)

// MinYear is the oldest year accepted from the firmware.
const MinYear = 2020

var (
	ErrNotSet          = errors.New("time registers not set")
	ErrOutOfRange      = errors.New("time registers out of range")
	ErrUnknownSelector = errors.New("unknown time selector")
)

// Fields is the raw content of one group, after defaults are applied.
type Fields struct {
	Year, Month, Day, Hour, Minute, Second int
}

func (f Fields) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", f.Year, f.Month, f.Day, f.Hour, f.Minute, f.Second)
}

// second, minute, hour, day, month, year
func codes(sel Selector) ([6]registers.FieldCode, bool) {
	switch sel {
	case Start:
		return [6]registers.FieldCode{
			registers.StartSecond, registers.StartMinute, registers.StartHour,
			registers.StartDay, registers.StartMonth, registers.StartYear,
		}, true
	case End:
		return [6]registers.FieldCode{
			registers.EndSecond, registers.EndMinute, registers.EndHour,
			registers.EndDay, registers.EndMonth, registers.EndYear,
		}, true
	}
	return [6]registers.FieldCode{}, false
}

// ReadFields returns the group with per-field defaults applied:
// day and month default to 1, year defaults to now's year.
func ReadFields(admin registers.Block, sel Selector, now time.Time) (Fields, error) {
	c, ok := codes(sel)
	if !ok {
		return Fields{}, fmt.Errorf("%w: %q", ErrUnknownSelector, sel)
	}

	f := Fields{
		Second: admin.Get(c[0]),
		Minute: admin.Get(c[1]),
		Hour:   admin.Get(c[2]),
		Day:    admin.Get(c[3]),
		Month:  admin.Get(c[4]),
		Year:   admin.Get(c[5]),
	}
	if f == (Fields{}) {
		return f, fmt.Errorf("%s: %w", sel, ErrNotSet)
	}

	if f.Day == 0 {
		f.Day = 1
	}
	if f.Month == 0 {
		f.Month = 1
	}
	if f.Year == 0 {
		f.Year = now.Year()
	}
	return f, nil
}

// Validate checks the calendar ranges accepted from the firmware.
func (f Fields) Validate() error {
	if f.Year < MinYear ||
		f.Month < 1 || f.Month > 12 ||
		f.Day < 1 || f.Day > 31 ||
		f.Hour < 0 || f.Hour > 23 ||
		f.Minute < 0 || f.Minute > 59 ||
		f.Second < 0 || f.Second > 59 {
		return fmt.Errorf("%w: %s", ErrOutOfRange, f)
	}
	return nil
}

// Extract decodes the selected group into a timestamp in loc.
// A nil loc means time.Local. Any error means the group holds no usable time.
func Extract(admin registers.Block, sel Selector, loc *time.Location, now time.Time) (time.Time, error) {
	f, err := ReadFields(admin, sel, now)
	if err != nil {
		return time.Time{}, err
	}
	if err := f.Validate(); err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", sel, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(f.Year, time.Month(f.Month), f.Day, f.Hour, f.Minute, f.Second, 0, loc), nil
}
