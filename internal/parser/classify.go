package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// categoryKeywords is scanned in order; college keywords come first so that
// "college basketball" is not claimed by "basketball".
var categoryKeywords = []struct {
	re       *regexp.Regexp
	category string
}{
	{wordRe("college basketball"), "cbb"},
	{wordRe("ncaab"), "cbb"},
	{wordRe("ncaam"), "cbb"},
	{wordRe("cbb"), "cbb"},
	{wordRe("college football"), "cfb"},
	{wordRe("ncaaf"), "cfb"},
	{wordRe("cfb"), "cfb"},
	{wordRe("nfl"), "nfl"},
	{wordRe("football"), "nfl"},
	{wordRe("nba"), "nba"},
	{wordRe("basketball"), "nba"},
	{wordRe("nhl"), "nhl"},
	{wordRe("hockey"), "nhl"},
}

func wordRe(kw string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
}

// Category returns the first category whose keyword appears in text, or ""
// when none does.
func Category(text string) string {
	lower := strings.ToLower(text)
	for _, k := range categoryKeywords {
		if k.re.MatchString(lower) {
			return k.category
		}
	}
	return ""
}

// Market type pattern families. Spread and total are tested before winner:
// "vs" shows up in plenty of spread titles.
var (
	spreadPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bspread\b`),
		regexp.MustCompile(`\bwins? by\b`),
		regexp.MustCompile(`\bcover`),
		regexp.MustCompile(`(?:^|[\s(])[-+]\d+(?:\.\d+)?(?:[^\w.]|$)`),
	}
	totalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\btotal\b`),
		regexp.MustCompile(`\bo/u\b`),
		regexp.MustCompile(`\bover/under\b`),
		regexp.MustCompile(`\b(?:over|under)\s+\d`),
		regexp.MustCompile(`\bpoints\b`),
	}
	winnerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bwinner\b`),
		regexp.MustCompile(`\bwins?\b`),
		regexp.MustCompile(`\bbeat\b`),
		regexp.MustCompile(`\bvs\b`),
		regexp.MustCompile(`\s@\s`),
	}
)

// MarketType classifies a title. ok is false when no family matched and the
// winner default was applied.
func MarketType(title string) (domain.MarketType, bool) {
	lower := strings.ToLower(title)
	switch {
	case anyMatch(spreadPatterns, lower):
		return domain.MarketSpread, true
	case anyMatch(totalPatterns, lower):
		return domain.MarketTotal, true
	case anyMatch(winnerPatterns, lower):
		return domain.MarketWinner, true
	default:
		return domain.MarketWinner, false
	}
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

var (
	// A number standing on its own: "76ers" does not count as 76.
	textNumber = regexp.MustCompile(`(?:^|[^\w.])([-+]?\d+(?:\.\d+)?)(?:[^\w.]|$)`)

	trailingDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}$`)
	pointSuffix  = regexp.MustCompile(`(\d+)pt(\d+)$`)
	numberSuffix = regexp.MustCompile(`[-_][a-z]*(\d+(?:\.\d+)?)$`)
)

// LineFromText returns the first standalone decimal literal in text.
func LineFromText(text string) (float64, bool) {
	m := textNumber.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// LineFromIdentifier parses a line encoded at the end of a market slug or
// ticker, such as "-5pt5" or "-BOS5". A trailing date is never a line.
func LineFromIdentifier(id string) (float64, bool) {
	lower := strings.ToLower(strings.TrimSpace(id))
	if lower == "" || trailingDate.MatchString(lower) {
		return 0, false
	}
	if m := pointSuffix.FindStringSubmatch(lower); m != nil {
		v, err := strconv.ParseFloat(m[1]+"."+m[2], 64)
		return v, err == nil
	}
	if m := numberSuffix.FindStringSubmatch(lower); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		return v, err == nil
	}
	return 0, false
}
