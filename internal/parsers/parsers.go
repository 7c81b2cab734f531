// Package parsers holds pure text -> value extractors. No I/O, no
// logging, no global state. Every function here is total and
// referentially transparent; ParseLicitorID is the only one that returns
// an error, and only for malformed input.
package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthsFR = map[string]int{
	"janvier":   1,
	"fevrier":   2,
	"février":   2,
	"mars":      3,
	"avril":     4,
	"mai":       5,
	"juin":      6,
	"juillet":   7,
	"aout":      8,
	"août":      8,
	"septembre": 9,
	"octobre":   10,
	"novembre":  11,
	"decembre":  12,
	"décembre":  12,
}

const monthPattern = `janvier|f[eé]vrier|mars|avril|mai|juin|` +
	`juillet|ao[uû]t|septembre|octobre|novembre|d[eé]cembre`

var (
	licitorIDRe   = regexp.MustCompile(`/(\d+)\.html$`)
	surfaceRe     = regexp.MustCompile(`([\d.,]+)\s*m[²2]`)
	gpsRe         = regexp.MustCompile(`q=([-\d.]+),([-\d.]+)`)
	deptCityRe    = regexp.MustCompile(`^(\d{2,3})\s+(.+)$`)
	frenchDateRe  = regexp.MustCompile(`(\d{1,2})\s+(` + monthPattern + `)(?:\s+(\d{4}))?`)
	auctionTimeRe = regexp.MustCompile(`(\d{1,2})\s*[hH:]\s*(\d{2})`)
	tribunalSlug  = regexp.MustCompile(`/ventes-judiciaires-immobilieres/(tj-[^/]+)/`)
	nonDigitRe    = regexp.MustCompile(`[^\d]`)
)

// BadInput marks a malformed parser input — currently only raised by
// ParseLicitorID.
type BadInput struct {
	Input string
}

func (e *BadInput) Error() string {
	return fmt.Sprintf("cannot extract licitor_id from: %s", e.Input)
}

// ParseLicitorID extracts the integer id from a URL path of form
// "…/<N>.html". Fails with *BadInput when absent.
func ParseLicitorID(urlPath string) (int, error) {
	m := licitorIDRe.FindStringSubmatch(urlPath)
	if m == nil {
		return 0, &BadInput{Input: urlPath}
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, &BadInput{Input: urlPath}
	}
	return n, nil
}

// ParsePrice strips every non-digit character and parses what remains as
// an integer euro amount. Empty input (after stripping) yields nil.
func ParsePrice(text string) *int {
	cleaned := nonDigitRe.ReplaceAllString(text, "")
	if cleaned == "" {
		return nil
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return nil
	}
	return &n
}

// ParseViewCount is ParsePrice under another name: engagement counters
// ("13 200", "13200") use the same digit-only normalization as prices.
func ParseViewCount(text string) *int {
	return ParsePrice(text)
}

// ParseSurface extracts a m² figure, normalizing a comma decimal to a dot.
func ParseSurface(text string) *float64 {
	m := surfaceRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	normalized := strings.ReplaceAll(m[1], ",", ".")
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseGPSFromMapsURL extracts (lat, lng) from a Google Maps href of form
// "…?q=48.8534,2.2754&z=13".
func ParseGPSFromMapsURL(url string) (lat, lng *float64) {
	m := gpsRe.FindStringSubmatch(url)
	if m == nil {
		return nil, nil
	}
	la, err1 := strconv.ParseFloat(m[1], 64)
	lo, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &la, &lo
}

// ParseDepartmentCity splits "75 Paris 16ème" into ("75", "Paris 16ème").
// When no leading department code is present, dept is empty and city is
// the trimmed input.
func ParseDepartmentCity(locationText string) (dept, city string) {
	text := strings.TrimSpace(locationText)
	m := deptCityRe.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return m[1], strings.TrimSpace(m[2])
}

// ParseFrenchDate parses a French date phrase ("jeudi 12 février 2026",
// "12 mars") into ISO "YYYY-MM-DD". A missing year defaults to now's
// year; an unmatched month returns "".
func ParseFrenchDate(text string) string {
	return parseFrenchDateAt(text, time.Now())
}

func parseFrenchDateAt(text string, now time.Time) string {
	m := frenchDateRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return ""
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	month, ok := monthsFR[m[2]]
	if !ok {
		return ""
	}
	year := now.Year()
	if m[3] != "" {
		y, err := strconv.Atoi(m[3])
		if err == nil {
			year = y
		}
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// ParseAuctionTime parses "14h00", "9h30", "14:00" into zero-padded
// "HH:MM".
func ParseAuctionTime(text string) string {
	m := auctionTimeRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%02d:%s", hour, m[2])
}

// ExtractTribunalSlug pulls "tj-aix-en-provence" out of a URL path like
// "/ventes-judiciaires-immobilieres/tj-aix-en-provence/…". Returns "" when
// the path doesn't match.
func ExtractTribunalSlug(urlPath string) string {
	m := tribunalSlug.FindStringSubmatch(urlPath)
	if m == nil {
		return ""
	}
	return m[1]
}
