// Package scrapers turns fetched HTML documents into domain values. Each
// file owns one page shape; the extraction functions are pure and take a
// parsed document, while the scraper types share one *httpclient.Client
// so a whole workflow obeys a single rate limit.
package scrapers

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/encheres-immo/scraper/internal/httpclient"
	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/parsers"
)

var tribunalLinkRe = regexp.MustCompile(`/ventes-judiciaires-immobilieres/tj-[^/]+/`)

// IndexScraper lists every tribunal reachable from the France-wide index
// page.
type IndexScraper struct {
	client *httpclient.Client
}

func NewIndexScraper(client *httpclient.Client) *IndexScraper {
	return &IndexScraper{client: client}
}

// Scrape fetches indexPath and returns one Tribunal per court link found
// under the region listing, region taken from the preceding <h3><span>.
func (s *IndexScraper) Scrape(ctx context.Context, indexPath string) ([]models.Tribunal, error) {
	doc, err := s.client.Get(ctx, indexPath)
	if err != nil {
		return nil, err
	}
	return extractTribunals(doc), nil
}

func extractTribunals(doc *goquery.Document) []models.Tribunal {
	var tribunals []models.Tribunal
	region := ""

	doc.Find("#courts h3, #courts a").Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "h3" {
			if span := sel.Find("span").First(); span.Length() > 0 {
				region = strings.TrimSpace(span.Text())
			} else {
				region = strings.TrimSpace(sel.Text())
			}
			return
		}

		href, ok := sel.Attr("href")
		if !ok || !tribunalLinkRe.MatchString(href) {
			return
		}
		slug := parsers.ExtractTribunalSlug(href)
		if slug == "" {
			return
		}

		count := 0
		if span := sel.Find("span.Count").First(); span.Length() > 0 {
			digits := digitsOnly(span.Text())
			if n, err := strconv.Atoi(digits); err == nil {
				count = n
			}
		}

		tribunals = append(tribunals, models.Tribunal{
			Slug:         slug,
			Name:         strings.TrimSpace(sel.Text()),
			Region:       region,
			ListingCount: count,
			URLPath:      href,
		})
	})

	return tribunals
}

var nonDigit = regexp.MustCompile(`[^\d]`)

func digitsOnly(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// normalizePath strips a path's query string and fragment so cycle
// detection keys on the bare path. Two links that differ only by "?p=2"
// or "#anchor" dedupe to one entry; pagination itself is walked via the
// Next link, never by re-enqueuing a path that only differs by query.
func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		return path[:i]
	}
	return path
}
