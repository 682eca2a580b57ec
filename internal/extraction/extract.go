package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"ocrscan/internal/logger"
)

var (
	digitRunPattern = regexp.MustCompile(`\d+`)
	amountPattern   = regexp.MustCompile(`[\d,]+\.?\d*`)
)

// datePattern is one accepted date shape. Patterns are tried in order and
// only the leftmost match of each is considered.
type datePattern struct {
	name    string
	re      *regexp.Regexp
	yearIdx int
	monIdx  int
	dayIdx  int
}

var datePatterns = []datePattern{
	// 10/05/2565, 15-01-1997
	{name: "dmy", re: regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`), dayIdx: 1, monIdx: 2, yearIdx: 3},
	// 2565-05-10
	{name: "ymd", re: regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`), yearIdx: 1, monIdx: 2, dayIdx: 3},
}

// Extractor locates identifier, date, and amount candidates in OCR text.
// Each method is independent of the others and safe for concurrent use.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates an Extractor logging under the "extractor" component.
func NewExtractor() *Extractor {
	return &Extractor{
		log: logger.WithComponent("extractor"),
	}
}

// ExtractIdentifier returns the leftmost run of exactly 13 consecutive
// digits. Longer or shorter runs are skipped. The checksum is not checked.
func (e *Extractor) ExtractIdentifier(text string) (string, bool) {
	if text == "" {
		e.log.Warn().Msg("Empty text, cannot search for identifier")
		return "", false
	}

	text = NormalizeDigits(text)
	for _, run := range digitRunPattern.FindAllString(text, -1) {
		if len(run) == IdentifierLength {
			e.log.Info().Str("identifier", run).Msg("Identifier found")
			return run, true
		}
	}

	e.log.Warn().Msg("No 13-digit identifier found in text")
	return "", false
}

// ExtractDate returns the first valid calendar date in the text.
//
// The day/month/year shape is checked before year/month/day. For each shape
// only its leftmost match is a candidate; a candidate that is not a real
// calendar date is dropped and the next shape is tried. Years are taken as
// written, so Buddhist Era years stay in the Buddhist Era.
func (e *Extractor) ExtractDate(text string) (time.Time, bool) {
	if text == "" {
		e.log.Warn().Msg("Empty text, cannot search for date")
		return time.Time{}, false
	}

	text = NormalizeDigits(text)
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		date, ok := calendarDate(m[p.yearIdx], m[p.monIdx], m[p.dayIdx])
		if !ok {
			e.log.Warn().
				Str("pattern", p.name).
				Str("match", m[0]).
				Msg("Date candidate is not a valid calendar date")
			continue
		}
		e.log.Info().
			Str("pattern", p.name).
			Str("match", m[0]).
			Str("date", FormatDate(date)).
			Msg("Date found")
		return date, true
	}

	e.log.Warn().Msg("No date found in text")
	return time.Time{}, false
}

// ExtractAmount returns the first comma-grouped number in the text that
// parses as a float. Tokens that do not parse, such as bare commas, are
// skipped.
func (e *Extractor) ExtractAmount(text string) (float64, bool) {
	if text == "" {
		e.log.Warn().Msg("Empty text, cannot search for amount")
		return 0, false
	}

	text = NormalizeDigits(text)
	for _, m := range amountPattern.FindAllString(text, -1) {
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			continue
		}
		e.log.Info().Float64("amount", amount).Str("match", m).Msg("Amount found")
		return amount, true
	}

	e.log.Warn().Msg("No amount found in text")
	return 0, false
}

// FormatDate renders d as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// NormalizeDigits folds Thai digits (U+0E50..U+0E59) to ASCII so that
// documents printed with Thai numerals match the same patterns.
func NormalizeDigits(s string) string {
	if !strings.ContainsFunc(s, isThaiDigit) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isThaiDigit(r) {
			return '0' + (r - '๐')
		}
		return r
	}, s)
}

func isThaiDigit(r rune) bool { return r >= '๐' && r <= '๙' }

// calendarDate builds a UTC date and rejects values that time.Date would
// silently normalize (month 13, day 32, Feb 30, year 0).
func calendarDate(year, month, day string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, false
	}
	return t, true
}
