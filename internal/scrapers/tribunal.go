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

var adLinkRe = regexp.MustCompile(`(^|\s)Ad(\s|$)`)

// TribunalScraper walks one tribunal's current hearing, that hearing's
// pagination, and every other upcoming hearing it links to from its
// traversing-hearings section.
type TribunalScraper struct {
	client *httpclient.Client
}

func NewTribunalScraper(client *httpclient.Client) *TribunalScraper {
	return &TribunalScraper{client: client}
}

// Scrape walks startPath and every hearing reachable from its
// "#traversing-hearings" section, paginating each hearing to exhaustion.
// visited prevents revisiting a hearing URL already seen this run or in a
// prior call sharing the same set — callers own the set's lifetime.
func (s *TribunalScraper) Scrape(ctx context.Context, startPath string, visited map[string]bool) ([]models.ListingSummary, error) {
	var listings []models.ListingSummary

	queue := []string{startPath}
	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]
		key := normalizePath(path)
		if visited[key] {
			continue
		}
		visited[key] = true

		hearingListings, next, err := s.scrapeHearingAllPages(ctx, path, visited)
		if err != nil {
			return listings, err
		}
		listings = append(listings, hearingListings...)
		queue = append(queue, next...)
	}

	return listings, nil
}

// scrapeHearingAllPages follows one hearing's own "Next" result-page
// pagination to exhaustion, then returns the other-hearing links found on
// its first page's "#traversing-hearings" section.
func (s *TribunalScraper) scrapeHearingAllPages(ctx context.Context, hearingPath string, visited map[string]bool) ([]models.ListingSummary, []string, error) {
	var listings []models.ListingSummary
	var otherHearings []string
	path := hearingPath
	first := true

	for path != "" {
		doc, err := s.client.Get(ctx, path)
		if err != nil {
			return listings, otherHearings, err
		}

		listings = append(listings, extractListingSummaries(doc)...)

		if first {
			otherHearings = extractTraversingHearings(doc, visited)
			first = false
		}

		path = extractNextPagePath(doc)
	}

	return listings, otherHearings, nil
}

func extractListingSummaries(doc *goquery.Document) []models.ListingSummary {
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

		dept, city := extractLocation(a)
		price := parsers.ParsePrice(a.Find("span.PriceNumber").Text())

		out = append(out, models.ListingSummary{
			LicitorID:        licitorID,
			URLPath:          href,
			PropertyType:     strings.TrimSpace(a.Find("span.Name").Text()),
			DepartmentCode:   dept,
			City:             city,
			StartingPrice:    price,
			DescriptionShort: strings.TrimSpace(a.Find("span.Text").Text()),
			PublicationDate:  strings.TrimSpace(li.Find("p.PublishingDate").Text()),
		})
	})

	return out
}

// extractLocation reads a row's department code and city from the
// Number/City span pair inside its Location paragraph, falling back to
// splitting the combined text ("75 Paris 16ème") when the spans are
// missing.
func extractLocation(a *goquery.Selection) (dept, city string) {
	dept = strings.TrimSpace(a.Find("span.Number").First().Text())
	city = strings.TrimSpace(a.Find("span.City").First().Text())
	if dept == "" && city == "" {
		return parsers.ParseDepartmentCity(strings.TrimSpace(a.Find("p.Location").Text()))
	}
	return dept, city
}

// extractNextPagePath finds the "Next PageNav" link on a result page.
func extractNextPagePath(doc *goquery.Document) string {
	href := ""
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		class, _ := a.Attr("class")
		if strings.Contains(class, "Next") && strings.Contains(class, "PageNav") {
			href, _ = a.Attr("href")
			return false
		}
		return true
	})
	return href
}

// extractTraversingHearings reads the "#traversing-hearings" list of other
// upcoming hearings for this tribunal, skipping Previous/Next/Empty nav
// items and anything already visited.
func extractTraversingHearings(doc *goquery.Document, visited map[string]bool) []string {
	var paths []string
	doc.Find("#traversing-hearings > ul > li").Each(func(_ int, li *goquery.Selection) {
		class, _ := li.Attr("class")
		if strings.Contains(class, "Previous") || strings.Contains(class, "Next") || strings.Contains(class, "Empty") {
			return
		}
		href, ok := li.Find("a").First().Attr("href")
		if !ok || visited[normalizePath(href)] {
			return
		}
		paths = append(paths, href)
	})
	return paths
}
