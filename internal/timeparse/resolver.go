package timeparse

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"

	"github.com/teemow/agenda/internal/failure"
)

const (
	// DefaultZone is the zone used when neither the caller nor the
	// configuration names one.
	DefaultZone = "America/Sao_Paulo"

	// DefaultDuration is added to the start instant when no end is given.
	DefaultDuration = time.Hour
)

// Conventions fixes the time of day used for vague expressions.
type Conventions struct {
	// Morning is the hour for "de manhã".
	Morning int
	// Afternoon is the hour for "à tarde".
	Afternoon int
	// Evening is the hour for "à noite".
	Evening int
	// Noon is the hour for "meio-dia".
	Noon int
	// DateOnly is the hour used when a date is given without any time.
	DateOnly int
}

// DefaultConventions are the conventions the resolver uses unless told otherwise.
var DefaultConventions = Conventions{
	Morning:   9,
	Afternoon: 15,
	Evening:   19,
	Noon:      12,
	DateOnly:  9,
}

// explicitLayouts are tried, after RFC 3339, before natural-language parsing.
var explicitLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Interval is a resolved start/end pair.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Options carry the per-call inputs of a resolution.
type Options struct {
	// Reference is the instant relative expressions are resolved against.
	// The zero value means "now".
	Reference time.Time

	// Zone is the IANA zone the expression is read in. Empty means the
	// resolver's default zone.
	Zone string
}

// Resolver turns pt-BR date/time expressions into instants.
// A Resolver is immutable and safe for concurrent use.
type Resolver struct {
	zone        string
	now         func() time.Time
	duration    time.Duration
	conventions Conventions
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces time.Now as the source of the implicit reference instant.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithDefaultDuration changes the duration added when no end is given.
func WithDefaultDuration(d time.Duration) Option {
	return func(r *Resolver) {
		r.duration = d
	}
}

// WithConventions changes the time-of-day conventions.
func WithConventions(c Conventions) Option {
	return func(r *Resolver) {
		r.conventions = c
	}
}

// NewResolver creates a Resolver whose default zone is zone (DefaultZone if empty).
func NewResolver(zone string, opts ...Option) (*Resolver, error) {
	if zone == "" {
		zone = DefaultZone
	}
	if _, err := time.LoadLocation(zone); err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", zone, err)
	}

	r := &Resolver{
		zone:        zone,
		now:         time.Now,
		duration:    DefaultDuration,
		conventions: DefaultConventions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Zone returns the resolver's default zone name.
func (r *Resolver) Zone() string {
	return r.zone
}

// Resolve resolves text to an interval of the default duration.
func (r *Resolver) Resolve(text string, opts Options) (Interval, error) {
	start, err := r.ResolveInstant(text, opts)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: start.Add(r.duration)}, nil
}

// ResolveInstant resolves text to a single instant in the requested zone.
func (r *Resolver) ResolveInstant(text string, opts Options) (time.Time, error) {
	return r.resolve(text, time.Time{}, opts)
}

// ResolveEnd resolves the end of an interval starting at start. A day named
// in text is read against the same reference as the start ("amanhã às
// 10h"); a bare time of day ("às 11h") falls on the start's date, or the
// next one when it is not after start. A zero start behaves like
// ResolveInstant.
func (r *Resolver) ResolveEnd(text string, start time.Time, opts Options) (time.Time, error) {
	return r.resolve(text, start, opts)
}

func (r *Resolver) resolve(text string, start time.Time, opts Options) (time.Time, error) {
	loc, err := r.location(opts.Zone)
	if err != nil {
		return time.Time{}, err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return time.Time{}, failure.Parse(text)
	}

	if t, ok := parseExplicit(trimmed, loc); ok {
		return t, nil
	}

	ref := opts.Reference
	if ref.IsZero() {
		ref = r.now()
	}
	ref = ref.In(loc)

	frags, ok := r.match(trimmed, ref)
	if !ok {
		return time.Time{}, failure.Parse(text)
	}

	anchor := ref
	if !start.IsZero() && !frags.dated() {
		anchor = start.In(loc)
	}
	t, ok := compose(frags, anchor, r.conventions)
	if !ok {
		return time.Time{}, failure.Parse(text)
	}
	return t, nil
}

func (r *Resolver) location(zone string) (*time.Location, error) {
	if zone == "" {
		zone = r.zone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, failure.Validation("timeZone", "unknown time zone %q", zone)
	}
	return loc, nil
}

func parseExplicit(text string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t.In(loc), true
	}
	for _, layout := range explicitLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// match runs the pt-BR rules over text. Every fragment found anywhere in
// text belongs to the expression, so "amanhã, na sala 3, às 14h" keeps its
// time.
func (r *Resolver) match(text string, ref time.Time) (*fragments, bool) {
	frags := &fragments{}
	folded := fold(text)

	p := when.New(&rules.Options{
		Distance:     len(folded),
		MatchByOrder: true,
		Morning:      r.conventions.Morning,
		Afternoon:    r.conventions.Afternoon,
		Evening:      r.conventions.Evening,
		Noon:         r.conventions.Noon,
	})
	p.Add(ptBR(frags)...)

	res, err := p.Parse(folded, ref)
	if err != nil || res == nil || frags.invalid || frags.empty() {
		return nil, false
	}
	return frags, true
}

// compose turns the recognized fragments into one instant. The rules are:
//
//   - a sub-day offset ("daqui a 2 horas") wins over everything else
//   - the date comes from, in order: an explicit date, a weekday (inside
//     next week when "semana que vem" is present), "semana que vem" alone,
//     a relative day, a day offset, and finally the reference date
//   - the hour comes from an explicit clock (shifted by 12h when a
//     tarde/noite period follows an hour below 12), then the period
//     convention, then the date-only convention
//   - meio-dia and meia-noite are never shifted; meia-noite and "12h da
//     noite" are the midnight that closes the day
//   - a time with no date that is not after the reference moves to the next day
func compose(f *fragments, ref time.Time, conv Conventions) (time.Time, bool) {
	loc := ref.Location()

	if f.offset > 0 {
		return ref.Add(f.offset).Truncate(time.Minute), true
	}

	year, month, day := ref.Date()
	dated := true

	switch {
	case f.date != nil:
		d, ok := absoluteDate(*f.date, ref)
		if !ok {
			return time.Time{}, false
		}
		year, month, day = d.Date()

	case f.weekday != nil:
		var target time.Time
		if f.nextWeek {
			monday := addDays(ref, 7-daysSinceMonday(ref.Weekday()))
			target = addDays(monday, daysSinceMonday(*f.weekday))
		} else {
			delta := (int(*f.weekday) - int(ref.Weekday()) + 7) % 7
			if delta == 0 {
				delta = 7
			}
			target = addDays(ref, delta)
		}
		year, month, day = target.Date()

	case f.nextWeek:
		target := addDays(ref, 7)
		switch target.Weekday() {
		case time.Saturday:
			target = addDays(target, 2)
		case time.Sunday:
			target = addDays(target, 1)
		}
		year, month, day = target.Date()

	case f.relDays != nil:
		year, month, day = addDays(ref, *f.relDays).Date()

	case f.offsetDays != 0:
		year, month, day = addDays(ref, f.offsetDays).Date()

	default:
		dated = false
	}

	var hour, minute int
	switch {
	case f.hour != nil:
		hour, minute = *f.hour, f.minute
		switch {
		case f.fixedClock:
		case f.night && hour == 12:
			// "12h da noite" is midnight closing the day, like "meia-noite"
			hour = 24
		case f.afterNoon && hour < 12:
			hour += 12
		}
	case f.periodHour != nil:
		hour = *f.periodHour
	case dated:
		hour = conv.DateOnly
	default:
		return time.Time{}, false
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if !dated && !t.After(ref) {
		t = t.AddDate(0, 0, 1)
	}
	return t, true
}

// absoluteDate fills in the unspecified parts of d from ref, rolling forward
// to the next month or year when the date would otherwise be in the past or
// does not exist in the current month.
func absoluteDate(d civilDate, ref time.Time) (time.Time, bool) {
	loc := ref.Location()
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	if d.month == 0 {
		// the first month from today's on that has the day ("dia 31")
		for i := 0; i < 12; i++ {
			first := time.Date(today.Year(), today.Month()+time.Month(i), 1, 0, 0, 0, 0, loc)
			candidate, ok := validDate(first.Year(), first.Month(), d.day, loc)
			if ok && !candidate.Before(today) {
				return candidate, true
			}
		}
		return time.Time{}, false
	}

	if d.year == 0 {
		candidate, ok := validDate(ref.Year(), d.month, d.day, loc)
		if !ok {
			return time.Time{}, false
		}
		if candidate.Before(today) {
			return validDate(ref.Year()+1, d.month, d.day, loc)
		}
		return candidate, true
	}

	return validDate(d.year, d.month, d.day, loc)
}

// validDate rejects dates that time.Date would normalise (31/02).
func validDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, false
	}
	return t, true
}

func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func daysSinceMonday(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
