package nlp

import (
	"regexp"
	"strconv"
	"time"
)

// temporal is what the scanner recognised in a message, before it is
// anchored to a reference time.
type temporal struct {
	found bool

	// Date part. At most one of offset, weekday or absolute is set.
	hasOffset   bool
	dayOffset   int
	hasWeekday  bool
	weekday     time.Weekday
	nextWeek    bool
	hasAbsolute bool
	year        int
	month       time.Month
	day         int

	// Relative amount ("en 2 horas"); wins over everything else.
	hasRelative bool
	relDays     int
	relMinutes  int

	// Time part.
	hasClock  bool
	hour      int
	minute    int
	meridiem  meridiem
	partOfDay string
}

type meridiem int

const (
	noMeridiem meridiem = iota
	ante
	post
)

// Default hour for each part of the day when no clock time is given.
var partOfDayHours = map[string]int{
	"madrugada": 3,
	"manana":    9,
	"tarde":     16,
	"noche":     20,
}

var weekdays = map[string]time.Weekday{
	"domingo":   time.Sunday,
	"lunes":     time.Monday,
	"martes":    time.Tuesday,
	"miercoles": time.Wednesday,
	"jueves":    time.Thursday,
	"viernes":   time.Friday,
	"sabado":    time.Saturday,
}

var months = map[string]time.Month{
	"enero":      time.January,
	"febrero":    time.February,
	"marzo":      time.March,
	"abril":      time.April,
	"mayo":       time.May,
	"junio":      time.June,
	"julio":      time.July,
	"agosto":     time.August,
	"septiembre": time.September,
	"setiembre":  time.September,
	"octubre":    time.October,
	"noviembre":  time.November,
	"diciembre":  time.December,
}

var numberWords = map[string]int{
	"un": 1, "una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4,
	"cinco": 5, "seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
	"once": 11, "doce": 12, "quince": 15, "veinte": 20, "treinta": 30,
}

var (
	clockRe    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm|hrs|hr|h)?$`)
	slashRe    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})(?:/(\d{2}|\d{4}))?$`)
	isoDateRe  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	dashDateRe = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})-(\d{4})$`)
)

// ExtractDate finds a Spanish date or time expression in text and resolves
// it against now, in now's location. A date without a time resolves to
// 12:00; a time without a date that has already passed today resolves to
// tomorrow.
func ExtractDate(text string, now time.Time) (time.Time, bool) {
	t, _ := scanTemporal(splitWords(text))
	return t.resolve(now)
}

// scanTemporal walks the words left to right and records every temporal
// expression it recognises. The returned mask marks the consumed words.
func scanTemporal(words []word) (temporal, []bool) {
	s := scanner{words: words, used: make([]bool, len(words))}
	matchers := []func(int) int{
		s.matchRelative,
		s.matchPasadoManana,
		s.matchPartOfDay,
		s.matchDayWord,
		s.matchWeekday,
		s.matchNumericDate,
		s.matchMonthDate,
		s.matchClock,
	}

	for i := 0; i < len(words); {
		n := 0
		for _, m := range matchers {
			if n = m(i); n > 0 {
				break
			}
		}
		if n == 0 {
			i++
			continue
		}
		for k := i; k < i+n; k++ {
			s.used[k] = true
		}
		s.t.found = true
		i += n
	}
	return s.t, s.used
}

type scanner struct {
	words []word
	used  []bool
	t     temporal
}

func (s *scanner) w(i int) string {
	if i < 0 || i >= len(s.words) {
		return ""
	}
	return s.words[i].Norm
}

func (s *scanner) hasDate() bool {
	return s.t.hasOffset || s.t.hasWeekday || s.t.hasAbsolute
}

func (s *scanner) setOffset(days int) {
	if s.hasDate() {
		return
	}
	s.t.hasOffset = true
	s.t.dayOffset = days
}

// "en 2 horas", "dentro de media hora", "en tres días".
func (s *scanner) matchRelative(i int) int {
	j := i
	switch {
	case s.w(j) == "dentro" && s.w(j+1) == "de":
		j += 2
	case s.w(j) == "en":
		j++
	default:
		return 0
	}

	unit := s.w(j + 1)
	if s.w(j) == "media" && (unit == "hora") {
		s.t.hasRelative = true
		s.t.relMinutes += 30
		return j + 2 - i
	}

	amount, ok := numberWords[s.w(j)]
	if !ok {
		n, err := strconv.Atoi(s.w(j))
		if err != nil || n <= 0 {
			return 0
		}
		amount = n
	}

	switch unit {
	case "minuto", "minutos", "min", "mins":
		s.t.relMinutes += amount
	case "hora", "horas", "h", "hr", "hrs":
		s.t.relMinutes += amount * 60
	case "dia", "dias":
		s.t.relDays += amount
	case "semana", "semanas":
		s.t.relDays += amount * 7
	default:
		return 0
	}
	s.t.hasRelative = true
	return j + 2 - i
}

func (s *scanner) matchPasadoManana(i int) int {
	if s.w(i) == "pasado" && s.w(i+1) == "manana" {
		s.setOffset(2)
		return 2
	}
	return 0
}

// "por la tarde", "en la noche", "esta noche", "al mediodía".
func (s *scanner) matchPartOfDay(i int) int {
	switch s.w(i) {
	case "por", "de", "en":
		if s.w(i+1) != "la" {
			return 0
		}
		if _, ok := partOfDayHours[s.w(i+2)]; ok {
			s.t.partOfDay = s.w(i + 2)
			return 3
		}
	case "esta":
		if _, ok := partOfDayHours[s.w(i+1)]; ok {
			s.setOffset(0)
			s.t.partOfDay = s.w(i + 1)
			return 2
		}
	case "al", "a":
		if s.w(i+1) == "mediodia" || s.w(i+1) == "medianoche" {
			s.setNamedHour(s.w(i + 1))
			return 2
		}
		if s.w(i+1) == "la" && s.w(i+2) == "medianoche" {
			s.setNamedHour("medianoche")
			return 3
		}
	case "mediodia", "medianoche":
		s.setNamedHour(s.w(i))
		return 1
	}
	return 0
}

func (s *scanner) setNamedHour(name string) {
	if s.t.hasClock {
		return
	}
	s.t.hasClock = true
	s.t.minute = 0
	if name == "mediodia" {
		s.t.hour = 12
	} else {
		s.t.hour = 0
	}
}

func (s *scanner) matchDayWord(i int) int {
	switch s.w(i) {
	case "hoy":
		s.setOffset(0)
		return 1
	case "manana":
		// "toda la mañana" is a part of the day, not tomorrow.
		if s.w(i-1) == "la" {
			s.t.partOfDay = "manana"
			return 1
		}
		s.setOffset(1)
		return 1
	}
	return 0
}

// "el viernes", "el próximo lunes", "este sábado", "el martes que viene".
func (s *scanner) matchWeekday(i int) int {
	j := i
	if s.w(j) == "el" {
		j++
	}
	next := false
	switch s.w(j) {
	case "proximo", "proxima", "siguiente":
		next = true
		j++
	case "este", "esta":
		j++
	}
	wd, ok := weekdays[s.w(j)]
	if !ok {
		return 0
	}
	j++
	switch {
	case s.w(j) == "proximo":
		next = true
		j++
	case s.w(j) == "que" && s.w(j+1) == "viene":
		next = true
		j += 2
	}

	if !s.hasDate() {
		s.t.hasWeekday = true
		s.t.weekday = wd
		s.t.nextWeek = next
	}
	return j - i
}

// "15/11", "15/11/2026", "2026-11-15", "15-11-2026".
func (s *scanner) matchNumericDate(i int) int {
	j := i
	if s.w(j) == "el" {
		j++
	}
	tok := s.w(j)

	var y, m, d int
	if sm := slashRe.FindStringSubmatch(tok); sm != nil {
		d, _ = strconv.Atoi(sm[1])
		m, _ = strconv.Atoi(sm[2])
		if sm[3] != "" {
			y, _ = strconv.Atoi(sm[3])
			if y < 100 {
				y += 2000
			}
		}
	} else if sm := isoDateRe.FindStringSubmatch(tok); sm != nil {
		y, _ = strconv.Atoi(sm[1])
		m, _ = strconv.Atoi(sm[2])
		d, _ = strconv.Atoi(sm[3])
	} else if sm := dashDateRe.FindStringSubmatch(tok); sm != nil {
		d, _ = strconv.Atoi(sm[1])
		m, _ = strconv.Atoi(sm[2])
		y, _ = strconv.Atoi(sm[3])
	} else {
		return 0
	}

	if !validDate(y, m, d) {
		return 0
	}
	s.setAbsolute(y, time.Month(m), d)
	return j + 1 - i
}

// "15 de noviembre", "el 3 de marzo de 2027".
func (s *scanner) matchMonthDate(i int) int {
	j := i
	if s.w(j) == "el" {
		j++
	}
	d, err := strconv.Atoi(s.w(j))
	if err != nil || s.w(j+1) != "de" {
		return 0
	}
	m, ok := months[s.w(j+2)]
	if !ok {
		return 0
	}
	j += 3

	y := 0
	if s.w(j) == "de" || s.w(j) == "del" {
		if yy, err := strconv.Atoi(s.w(j + 1)); err == nil && yy >= 1000 {
			y = yy
			j += 2
		}
	}
	if !validDate(y, int(m), d) {
		return 0
	}
	s.setAbsolute(y, m, d)
	return j - i
}

func (s *scanner) setAbsolute(y int, m time.Month, d int) {
	if s.hasDate() {
		return
	}
	s.t.hasAbsolute = true
	s.t.year, s.t.month, s.t.day = y, m, d
}

func validDate(y, m, d int) bool {
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return false
	}
	probe := y
	if probe == 0 {
		probe = 2000 // leap year, so 29/02 is accepted without a year
	}
	t := time.Date(probe, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return t.Day() == d
}

// "a las 3pm", "a la 1 y media", "15:30", "3 pm", "a las 8 de la noche".
func (s *scanner) matchClock(i int) int {
	j := i
	prefixed := false
	article := ""
	switch {
	case s.w(j) == "a" && (s.w(j+1) == "las" || s.w(j+1) == "la"):
		article = s.w(j + 1)
		j += 2
		prefixed = true
	case s.w(j) == "las" || s.w(j) == "la":
		article = s.w(j)
		j++
		prefixed = true
	}

	sm := clockRe.FindStringSubmatch(s.w(j))
	if sm == nil {
		return 0
	}
	hour, _ := strconv.Atoi(sm[1])
	// Only one o'clock takes the singular article: "a la 1", "a las 2".
	if (article == "la") != (hour == 1) && article != "" {
		return 0
	}
	minute := 0
	if sm[2] != "" {
		minute, _ = strconv.Atoi(sm[2])
	}
	mer := noMeridiem
	switch sm[3] {
	case "am":
		mer = ante
	case "pm":
		mer = post
	}
	explicit := prefixed || sm[2] != "" || sm[3] != ""
	j++

	switch {
	case s.w(j) == "y" && s.w(j+1) == "media":
		minute = 30
		j += 2
	case s.w(j) == "y" && s.w(j+1) == "cuarto":
		minute = 15
		j += 2
	case s.w(j) == "menos" && s.w(j+1) == "cuarto":
		minute = 45
		hour--
		j += 2
	}

	switch s.w(j) {
	case "am":
		mer = ante
		explicit = true
		j++
	case "pm":
		mer = post
		explicit = true
		j++
	case "hrs", "horas", "h":
		explicit = true
		j++
	}

	if s.w(j) == "de" && s.w(j+1) == "la" {
		if _, ok := partOfDayHours[s.w(j+2)]; ok {
			s.t.partOfDay = s.w(j + 2)
			explicit = true
			j += 3
		}
	}

	if !explicit || hour < 0 || hour > 23 || minute > 59 {
		return 0
	}
	if !s.t.hasClock {
		s.t.hasClock = true
		s.t.hour, s.t.minute, s.t.meridiem = hour, minute, mer
	}
	return j - i
}

// resolve anchors t to now. It reports false when nothing was recognised.
func (t temporal) resolve(now time.Time) (time.Time, bool) {
	if !t.found {
		return time.Time{}, false
	}
	if t.hasRelative {
		return now.AddDate(0, 0, t.relDays).Add(time.Duration(t.relMinutes) * time.Minute), true
	}

	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	day := today
	hasDate := true

	switch {
	case t.hasOffset:
		day = today.AddDate(0, 0, t.dayOffset)
	case t.hasWeekday:
		delta := (int(t.weekday) - int(now.Weekday()) + 7) % 7
		if delta == 0 && t.nextWeek {
			delta = 7
		}
		day = today.AddDate(0, 0, delta)
	case t.hasAbsolute:
		year := t.year
		if year == 0 {
			year = y
			if time.Date(year, t.month, t.day, 0, 0, 0, 0, loc).Before(today) {
				year++
			}
		}
		day = time.Date(year, t.month, t.day, 0, 0, 0, 0, loc)
	default:
		hasDate = false
	}

	hour, minute := 12, 0
	switch {
	case t.hasClock:
		hour, minute = t.hour, t.minute
		switch {
		case t.meridiem == post || t.partOfDay == "tarde" || t.partOfDay == "noche":
			if hour < 12 {
				hour += 12
			}
		case t.meridiem == ante || t.partOfDay == "manana" || t.partOfDay == "madrugada":
			if hour == 12 {
				hour = 0
			}
		}
	case t.partOfDay != "":
		hour = partOfDayHours[t.partOfDay]
	case !hasDate:
		return time.Time{}, false
	}

	dy, dm, dd := day.Date()
	result := time.Date(dy, dm, dd, hour, minute, 0, 0, loc)
	if !hasDate && !result.After(now) {
		result = result.AddDate(0, 0, 1)
	}
	return result, true
}
