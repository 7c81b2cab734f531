package scrapers

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/encheres-immo/scraper/internal/httpclient"
	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/parsers"
)

var (
	historyTribunalLinkRe = regexp.MustCompile(`/ventes-judiciaires-immobilieres/`)
	historySlugRe         = regexp.MustCompile(`/ventes-judiciaires-immobilieres/([^/]+)/`)
	carenceRe             = regexp.MustCompile(`(?i)carence`)
	nonRequiseRe          = regexp.MustCompile(`(?i)(vente\s+)?non\s+requise`)
	soldDateRe            = regexp.MustCompile(`(\d{2})[-/](\d{2})[-/](\d{4})`)
)

// HistoryScraper walks the results ("adjudications") pages, extracting
// the outcome of each already-held hearing.
type HistoryScraper struct {
	client *httpclient.Client
}

func NewHistoryScraper(client *httpclient.Client) *HistoryScraper {
	return &HistoryScraper{client: client}
}

// DiscoverTribunalResultsURLs finds every tribunal's results-page link on
// the history index, keyed by slug.
func (s *HistoryScraper) DiscoverTribunalResultsURLs(ctx context.Context, historyPath string) (map[string]string, error) {
	doc, err := s.client.Get(ctx, historyPath)
	if err != nil {
		return nil, err
	}

	urls := map[string]string{}
	doc.Find("#courts a, #search-courts a").Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !historyTribunalLinkRe.MatchString(href) {
			return
		}
		m := historySlugRe.FindStringSubmatch(href)
		if m == nil {
			return
		}
		urls[m[1]] = href
	})
	return urls, nil
}

// ScrapeTribunalHistory walks backward from startPath through "Audiences
// antérieures" links, bounded by maxHearings, collecting the result of
// every listing on every page it visits. visited prevents loops when a
// hearing links back to one already walked.
func (s *HistoryScraper) ScrapeTribunalHistory(ctx context.Context, startPath string, maxHearings int, visited map[string]bool) ([]models.ListingSummary, error) {
	var results []models.ListingSummary
	path := startPath
	hearings := 0

	for path != "" && hearings < maxHearings {
		key := normalizePath(path)
		if visited[key] {
			break
		}
		visited[key] = true
		hearings++

		hearingResults, err := s.scrapeResultsAllPages(ctx, path)
		if err != nil {
			return results, err
		}
		results = append(results, hearingResults...)

		path = s.previousHearingPath(ctx, path)
	}

	return results, nil
}

func (s *HistoryScraper) scrapeResultsAllPages(ctx context.Context, hearingPath string) ([]models.ListingSummary, error) {
	var out []models.ListingSummary
	path := hearingPath
	for path != "" {
		doc, err := s.client.Get(ctx, path)
		if err != nil {
			return out, err
		}
		out = append(out, extractResults(doc)...)
		path = extractNextPagePath(doc)
	}
	return out, nil
}

// previousHearingPath re-fetches hearingPath's own page to find its
// "Audiences antérieures" link.
func (s *HistoryScraper) previousHearingPath(ctx context.Context, hearingPath string) string {
	doc, err := s.client.Get(ctx, hearingPath)
	if err != nil {
		return ""
	}
	href := ""
	doc.Find("li.Next a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ = a.Attr("href")
		return false
	})
	return href
}

func extractResults(doc *goquery.Document) []models.ListingSummary {
	var out []models.ListingSummary

	doc.Find("ul.AdResults > li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			return adLinkRe.MatchString(class)
		}).First()
		if a.Length() == 0 {
			return
		}

		href, _ := a.Attr("href")
		licitorID, err := parsers.ParseLicitorID(href)
		if err != nil {
			return
		}

		status, finalPrice, resultDate := parseResultStatus(li.Find("p.Result").Text())

		// Result rows carry the same location/description spans as upcoming
		// rows; the starting price, when shown, sits in its own Price block
		// separate from the result line.
		dept, city := extractLocation(a)
		out = append(out, models.ListingSummary{
			LicitorID:        licitorID,
			URLPath:          href,
			PropertyType:     strings.TrimSpace(a.Find("span.Name").Text()),
			DepartmentCode:   dept,
			City:             city,
			StartingPrice:    parsers.ParsePrice(a.Find("div.Price p.Price span.PriceNumber").Text()),
			DescriptionShort: strings.TrimSpace(a.Find("span.Text").Text()),
			ResultStatus:     status,
			FinalPrice:       finalPrice,
			ResultDate:       resultDate,
		})
	})

	return out
}

// parseResultStatus classifies a hearing's outcome text into sold (with a
// final price and date), carence, or non_requise. "Carence" wins over any
// price text found, "non requise" likewise; only remaining text with a
// dd-mm-yyyy or dd/mm/yyyy date followed by a price is treated as a sale.
func parseResultStatus(text string) (status models.ResultStatus, finalPrice *int, resultDate string) {
	text = strings.TrimSpace(text)
	switch {
	case carenceRe.MatchString(text):
		return models.ResultCarence, nil, ""
	case nonRequiseRe.MatchString(text):
		return models.ResultNonRequise, nil, ""
	}

	loc := soldDateRe.FindStringSubmatchIndex(text)
	if loc == nil {
		return models.ResultUnknown, nil, ""
	}
	m := soldDateRe.FindStringSubmatch(text)
	resultDate = m[3] + "-" + m[2] + "-" + m[1]
	// The price always trails the date ("…12-03-2026 : 185 000 €"), so only
	// the text after the date match is fed to ParsePrice — otherwise the
	// date's own digits would bleed into the amount.
	finalPrice = parsers.ParsePrice(text[loc[1]:])
	if finalPrice == nil {
		// A date with no parseable price is ambiguous, not a sale: skip it
		// rather than record a sold row with an unknown price.
		return models.ResultUnknown, nil, ""
	}
	return models.ResultSold, finalPrice, resultDate
}
