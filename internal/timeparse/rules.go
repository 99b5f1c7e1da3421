package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when/rules"
)

// Every rule regexp has exactly one capturing group spanning the whole
// fragment. Appliers re-read the fragment through m.String() and parse it
// with the anchored inner expressions below.
var (
	relativeDayRe = regexp.MustCompile(`\b(depois\s+de\s+amanha|amanha|hoje|anteontem|ontem)\b`)

	weekdayRe = regexp.MustCompile(`\b((?:(?:proxim[oa]|nest[ae]|est[ae])\s+)?(?:segunda|terca|quarta|quinta|sexta|sabado|domingo)(?:[\s-]feira)?(?:\s+que\s+vem)?)\b`)

	nextWeekRe = regexp.MustCompile(`\b(semana\s+que\s+vem|proxima\s+semana|semana\s+seguinte)\b`)

	dateRe = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?|(?:dia\s+)?\d{1,2}\s+de\s+(?:janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)(?:\s+de\s+\d{4})?|dia\s+\d{1,2})\b`)

	clockRe = regexp.MustCompile(`\b((?:as\s+)?\d{1,2}\s+horas?|(?:as\s+)?(?:\d{1,2}:\d{2}|\d{1,2}\s?h(?:\d{2})?(?:min)?)|as\s+\d{1,2}|meio[\s-]dia|meia[\s-]noite)\b`)

	periodRe = regexp.MustCompile(`\b((?:(?:de|da|pela|na|a|nesta|esta|essa|nessa)\s+)?(?:manha|tarde|noite))\b`)

	offsetRe = regexp.MustCompile(`\b((?:daqui\s+a|dentro\s+de|em)\s+(?:\d{1,3}|um|uma|dois|duas|tres|meia)\s*(?:minutos?|min|horas?|h|dias?|semanas?))\b`)
)

var (
	isoDateInner     = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	numericDateInner = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?$`)
	writtenDateInner = regexp.MustCompile(`^(?:dia\s+)?(\d{1,2})\s+de\s+([a-z]+)(?:\s+de\s+(\d{4}))?$`)
	dayOnlyInner     = regexp.MustCompile(`^dia\s+(\d{1,2})$`)
	clockInner       = regexp.MustCompile(`^(?:as\s+)?(\d{1,2})(?:\s+horas?|\s?h|:)?(\d{2})?(?:min)?$`)
	offsetInner      = regexp.MustCompile(`^(?:daqui\s+a|dentro\s+de|em)\s+(\d{1,3}|um|uma|dois|duas|tres|meia)\s*([a-z]+)$`)
)

var monthNames = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

var weekdayNames = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

var numberWords = map[string]int{
	"um":   1,
	"uma":  1,
	"dois": 2,
	"duas": 2,
	"tres": 3,
}

// accentFolder lowers the input to the ASCII spelling the rules are written in.
var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "ô", "o", "õ", "o",
	"ú", "u", "ü", "u",
	"ç", "c",
)

func fold(text string) string {
	return accentFolder.Replace(strings.ToLower(text))
}

// civilDate is a calendar date whose year and month may be unspecified (zero).
type civilDate struct {
	year  int
	month time.Month
	day   int
}

// fragments accumulates what the rules of one parse recognized.
type fragments struct {
	relDays    *int
	weekday    *time.Weekday
	nextWeek   bool
	date       *civilDate
	hour       *int
	minute     int
	fixedClock bool
	periodHour *int
	afterNoon  bool
	night      bool
	offset     time.Duration
	offsetDays int
	invalid    bool
}

// dated reports whether a day was named, directly or as an offset.
func (f *fragments) dated() bool {
	return f.relDays != nil || f.weekday != nil || f.nextWeek || f.date != nil ||
		f.offset != 0 || f.offsetDays != 0
}

func (f *fragments) empty() bool {
	return f.relDays == nil && f.weekday == nil && !f.nextWeek && f.date == nil &&
		f.hour == nil && f.periodHour == nil && f.offset == 0 && f.offsetDays == 0
}

// ptBR returns the rule set that feeds f. A new set is built per parse, so
// the accumulator is never shared between goroutines.
func ptBR(f *fragments) []rules.Rule {
	return []rules.Rule{
		&rules.F{RegExp: dateRe, Applier: f.applyDate},
		&rules.F{RegExp: relativeDayRe, Applier: f.applyRelativeDay},
		&rules.F{RegExp: weekdayRe, Applier: f.applyWeekday},
		&rules.F{RegExp: nextWeekRe, Applier: f.applyNextWeek},
		&rules.F{RegExp: clockRe, Applier: f.applyClock},
		&rules.F{RegExp: periodRe, Applier: f.applyPeriod},
		&rules.F{RegExp: offsetRe, Applier: f.applyOffset},
	}
}

func (f *fragments) applyRelativeDay(m *rules.Match, _ *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
	var days int
	switch word := strings.TrimSpace(m.String()); {
	case strings.HasPrefix(word, "depois"):
		days = 2
	case word == "amanha":
		days = 1
	case word == "hoje":
		days = 0
	case word == "anteontem":
		days = -2
	case word == "ontem":
		days = -1
	default:
		return false, nil
	}
	f.relDays = &days
	return true, nil
}

func (f *fragments) applyWeekday(m *rules.Match, _ *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
	for _, word := range strings.FieldsFunc(m.String(), func(r rune) bool { return r == ' ' || r == '-' }) {
		if wd, ok := weekdayNames[word]; ok {
			f.weekday = &wd
			return true, nil
		}
	}
	return false, nil
}

func (f *fragments) applyNextWeek(_ *rules.Match, _ *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
	f.nextWeek = true
	return true, nil
}

func (f *fragments) applyDate(m *rules.Match, _ *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
	text := strings.TrimSpace(m.String())

	if sub := isoDateInner.FindStringSubmatch(text); sub != nil {
		f.date = &civilDate{year: atoi(sub[1]), month: time.Month(atoi(sub[2])), day: atoi(sub[3])}
		return true, nil
	}

	if sub := numericDateInner.FindStringSubmatch(text); sub != nil {
		d := &civilDate{day: atoi(sub[1]), month: time.Month(atoi(sub[2]))}
		if sub[3] != "" {
			d.year = atoi(sub[3])
			if d.year < 100 {
				d.year += 2000
			}
		}
		f.date = d
		return true, nil
	}

	if sub := writtenDateInner.FindStringSubmatch(text); sub != nil {
		month, ok := monthNames[sub[2]]
		if !ok {
			return false, nil
		}
		d := &civilDate{day: atoi(sub[1]), month: month}
		if sub[3] != "" {
			d.year = atoi(sub[3])
		}
		f.date = d
		return true, nil
	}

	if sub := dayOnlyInner.FindStringSubmatch(text); sub != nil {
		f.date = &civilDate{day: atoi(sub[1])}
		return true, nil
	}

	return false, nil
}

func (f *fragments) applyClock(m *rules.Match, _ *rules.Context, o *rules.Options, _ time.Time) (bool, error) {
	text := strings.TrimSpace(m.String())

	switch {
	case strings.HasPrefix(text, "meio"):
		h := o.Noon
		f.hour = &h
		f.fixedClock = true
		return true, nil
	case strings.HasPrefix(text, "meia"):
		// midnight closing the day
		h := 24
		f.hour = &h
		f.fixedClock = true
		return true, nil
	}

	sub := clockInner.FindStringSubmatch(text)
	if sub == nil {
		return false, nil
	}
	h := atoi(sub[1])
	minute := 0
	if sub[2] != "" {
		minute = atoi(sub[2])
	}
	if h > 23 || minute > 59 {
		f.invalid = true
		return true, nil
	}
	f.hour = &h
	f.minute = minute
	return true, nil
}

func (f *fragments) applyPeriod(m *rules.Match, _ *rules.Context, o *rules.Options, _ time.Time) (bool, error) {
	text := m.String()
	var h int
	switch {
	case strings.HasSuffix(text, "manha"):
		h = o.Morning
	case strings.HasSuffix(text, "tarde"):
		h = o.Afternoon
		f.afterNoon = true
	case strings.HasSuffix(text, "noite"):
		h = o.Evening
		f.afterNoon = true
		f.night = true
	default:
		return false, nil
	}
	f.periodHour = &h
	return true, nil
}

func (f *fragments) applyOffset(m *rules.Match, _ *rules.Context, _ *rules.Options, _ time.Time) (bool, error) {
	sub := offsetInner.FindStringSubmatch(strings.TrimSpace(m.String()))
	if sub == nil {
		return false, nil
	}

	amount, unit := sub[1], sub[2]
	if amount == "meia" {
		if !strings.HasPrefix(unit, "h") {
			return false, nil
		}
		f.offset = 30 * time.Minute
		return true, nil
	}

	n, ok := numberWords[amount]
	if !ok {
		n = atoi(amount)
	}

	switch {
	case strings.HasPrefix(unit, "min"):
		f.offset = time.Duration(n) * time.Minute
	case strings.HasPrefix(unit, "h"):
		f.offset = time.Duration(n) * time.Hour
	case strings.HasPrefix(unit, "dia"):
		f.offsetDays = n
	case strings.HasPrefix(unit, "semana"):
		f.offsetDays = 7 * n
	default:
		return false, nil
	}
	return true, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
