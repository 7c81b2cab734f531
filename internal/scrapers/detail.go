package scrapers

import (
	"context"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/encheres-immo/scraper/internal/httpclient"
	"github.com/encheres-immo/scraper/internal/models"
	"github.com/encheres-immo/scraper/internal/parsers"
	"github.com/encheres-immo/scraper/internal/scrapeerr"
)

var (
	tribunalNameRe  = regexp.MustCompile(`(?i)Tribunal\s+Judiciaire\s+(?:de\s+|d['’]\s*)([\w\s-]+)`)
	cadastralRe     = regexp.MustCompile(`(?i)[Cc]adastr[ée]e?\s+section\s+([\w\s°n]+)`)
	miseAPrixRe     = regexp.MustCompile(`(?i)[Mm]ise\s+[àa]\s+prix`)
	caseRefRe       = regexp.MustCompile(`(?i)RG\s+n[°o]\s*([\w/]+)`)
	caseRefFallback = regexp.MustCompile(`(?i)R[ée]f\.?\s*([\w/]+)`)
	lawyerPhoneRe   = regexp.MustCompile(`\d{2}[\s.]\d{2}[\s.]\d{2}[\s.]\d{2}[\s.]\d{2}`)
	dpeRe           = regexp.MustCompile(`(?i)DPE\s*[:\s]*([A-G])`)
	occupancyRe     = regexp.MustCompile(`(?i)occup[ée]e?|libre|vacant`)
	heartRe         = regexp.MustCompile(`[❤♥]\s*([\d\s.,]+)`)
	viewRe          = regexp.MustCompile(`(\d[\d\s.,]*)`)
	dateTimeSplit   = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2}):(\d{2})`)
	cityDeptRe      = regexp.MustCompile(`^(.*?)\s*\(([^)]+)\)\s*$`)
)

// DetailScraper extracts a full ListingDetail from a single listing's own
// page: the AdContent block and its nested Court, Date, AddressBlock
// (Lot > SousLot, Location), Trusts, AdditionalText, Reference, and
// PartnerOffer sections. Every field is best-effort — a missing block
// yields a zero value, never an error.
type DetailScraper struct {
	client *httpclient.Client
}

func NewDetailScraper(client *httpclient.Client) *DetailScraper {
	return &DetailScraper{client: client}
}

func (s *DetailScraper) Scrape(ctx context.Context, urlPath string) (models.ListingDetail, error) {
	doc, err := s.client.Get(ctx, urlPath)
	if err != nil {
		return models.ListingDetail{}, err
	}

	licitorID, err := parsers.ParseLicitorID(urlPath)
	if err != nil {
		return models.ListingDetail{}, &scrapeerr.Parse{Field: "licitor_id", Input: urlPath, Err: err}
	}

	d := models.ListingDetail{
		LicitorID: licitorID,
		URLPath:   urlPath,
	}

	adContent := doc.Find("div.AdContent").First()
	if adContent.Length() == 0 {
		// No AdContent block: best-effort extraction yields an all-empty
		// detail rather than a hard failure.
		return d, nil
	}

	fullText := adContent.Text()

	d.PublicationDate = extractPublicationDate(adContent)
	d.TribunalName, d.TribunalSlug = extractTribunal(adContent)
	d.AuctionDate, d.AuctionTime = extractAuctionDateTime(adContent)

	addressBlock := adContent.Find("section.AddressBlock").First()
	lotDiv := addressBlock.Find("div.Lot").First()
	sousLot := lotDiv.Find("div.SousLot").First()

	d.PropertyType, d.Description = extractPropertyTypeDescription(sousLot)
	d.CadastralRef = firstSubmatch(cadastralRe, sousLot.Text())
	d.StartingPrice = extractMiseAPrixFromLot(lotDiv, false)

	// department_code is deliberately left unset here: the detail page's
	// p.City only carries a department *name* in parens ("Cuges-les-Pins
	// (Bouches-du-Rhône)"), never the 2-3 digit code the store column
	// requires. Writing it here would clobber the numeric code the
	// tribunal/history summary walk already populated.
	locationDiv := addressBlock.Find("div.Location").First()
	d.City = extractCity(locationDiv)
	d.FullAddress = joinSegments(locationDiv.Find("p.Street").First(), ", ")
	d.Latitude, d.Longitude = extractGPS(locationDiv)

	trust := adContent.Find("div.Trusts div.Trust").First()
	d.LawyerName = strings.TrimSpace(trust.Find("h3").First().Text())
	d.LawyerPhone = firstSubmatch(lawyerPhoneRe, trust.Text())

	d.CaseReference = extractCaseReference(adContent)
	d.ViewCount, d.FavoritesCount = extractCounters(adContent)
	d.SurfaceM2 = parsers.ParseSurface(fullText)
	d.PricePerM2Min, d.PricePerM2Avg, d.PricePerM2Max = extractPricePerM2(doc)
	d.EnergyRating = firstSubmatch(dpeRe, fullText)
	d.OccupancyStatus = capitalize(firstSubmatch(occupancyRe, fullText))

	return d, nil
}

// ScrapeSurface performs a standalone fetch and extracts only the surface
// area, sharing no state with the full Scrape call.
func (s *DetailScraper) ScrapeSurface(ctx context.Context, urlPath string) (*float64, error) {
	doc, err := s.client.Get(ctx, urlPath)
	if err != nil {
		return nil, err
	}
	adContent := doc.Find("div.AdContent").First()
	if adContent.Length() == 0 {
		return nil, &scrapeerr.MissingField{Field: "surface", URL: urlPath}
	}
	surface := parsers.ParseSurface(adContent.Text())
	if surface == nil {
		return nil, &scrapeerr.MissingField{Field: "surface", URL: urlPath}
	}
	return surface, nil
}

// ScrapeMiseAPrix is another standalone fetch, extracting only the
// starting price from the Lot block's <h3>, falling back to an <h4> the
// full Scrape never checks.
func (s *DetailScraper) ScrapeMiseAPrix(ctx context.Context, urlPath string) (*int, error) {
	doc, err := s.client.Get(ctx, urlPath)
	if err != nil {
		return nil, err
	}
	adContent := doc.Find("div.AdContent").First()
	if adContent.Length() == 0 {
		return nil, &scrapeerr.MissingField{Field: "mise_a_prix", URL: urlPath}
	}
	lotDiv := adContent.Find("section.AddressBlock div.Lot").First()
	if lotDiv.Length() == 0 {
		return nil, &scrapeerr.MissingField{Field: "mise_a_prix", URL: urlPath}
	}
	price := extractMiseAPrixFromLot(lotDiv, true)
	if price == nil {
		return nil, &scrapeerr.MissingField{Field: "mise_a_prix", URL: urlPath}
	}
	return price, nil
}

func extractPublicationDate(adContent *goquery.Selection) string {
	t := adContent.Find("p.PublishingDate time").First()
	dt, ok := t.Attr("datetime")
	if !ok || len(dt) < 10 {
		return ""
	}
	return dt[:10]
}

// extractTribunal reads the Court paragraph's text and derives both the
// tribunal name and its slug ("tj-" + lowercase name, spaces to hyphens)
// from the matched city name, not from the listing URL, which may not
// carry the tribunal segment at all.
func extractTribunal(adContent *goquery.Selection) (name, slug string) {
	text := adContent.Find("p.Court").First().Text()
	m := tribunalNameRe.FindStringSubmatch(text)
	if m == nil {
		return "", ""
	}
	city := strings.TrimSpace(m[1])
	name = "TJ " + city
	slug = "tj-" + strings.ReplaceAll(strings.ToLower(city), " ", "-")
	return name, slug
}

func extractAuctionDateTime(adContent *goquery.Selection) (date, hour string) {
	dateP := adContent.Find("p.Date").First()
	if dt, ok := dateP.Find("time").First().Attr("datetime"); ok {
		if m := dateTimeSplit.FindStringSubmatch(dt); m != nil {
			return m[1], m[2] + ":" + m[3]
		}
	}
	// No machine-readable attribute (or one that isn't "T"-separated):
	// fall back to a French-date parse of the paragraph's own text.
	text := dateP.Text()
	return parsers.ParseFrenchDate(text), parsers.ParseAuctionTime(text)
}

func extractPropertyTypeDescription(sousLot *goquery.Selection) (propType, description string) {
	propType = strings.TrimSpace(sousLot.Find("h2").First().Text())
	var parts []string
	sousLot.Find("p").Each(func(_ int, p *goquery.Selection) {
		parts = append(parts, strings.TrimSpace(p.Text()))
	})
	return propType, strings.Join(parts, " ")
}

// extractMiseAPrixFromLot looks for the Lot block's <h3>"Mise à prix"
// heading; allowFallbackH4 additionally checks an <h4>, used only by the
// lightweight ScrapeMiseAPrix variant.
func extractMiseAPrixFromLot(lotDiv *goquery.Selection, allowFallbackH4 bool) *int {
	if price := findMiseAPrixHeading(lotDiv, "h3"); price != nil {
		return price
	}
	if allowFallbackH4 {
		return findMiseAPrixHeading(lotDiv, "h4")
	}
	return nil
}

func findMiseAPrixHeading(lotDiv *goquery.Selection, tag string) *int {
	var found string
	lotDiv.Find(tag).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if miseAPrixRe.MatchString(h.Text()) {
			found = h.Text()
			return false
		}
		return true
	})
	if found == "" {
		return nil
	}
	return parsers.ParsePrice(found)
}

// extractCity strips the parenthesized department name off the detail
// page's p.City text — "Cuges-les-Pins (Bouches-du-Rhône)" becomes
// "Cuges-les-Pins" — distinct from the tribunal-page "75 Paris 16ème"
// shape ParseDepartmentCity handles. The department name in parens is
// discarded rather than mistaken for department_code; see Scrape's
// comment on why that column is left untouched here.
func extractCity(locationDiv *goquery.Selection) string {
	text := strings.TrimSpace(locationDiv.Find("p.City").Text())
	m := cityDeptRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	return strings.TrimSpace(m[1])
}

func extractGPS(locationDiv *goquery.Selection) (lat, lng *float64) {
	href, ok := locationDiv.Find(`a[href*="maps.google"]`).First().Attr("href")
	if !ok {
		return nil, nil
	}
	return parsers.ParseGPSFromMapsURL(href)
}

// extractCaseReference prefers "RG n° …" from any p.AdditionalText,
// falling back to "Réf. …" inside a div.Reference.
func extractCaseReference(adContent *goquery.Selection) string {
	ref := ""
	adContent.Find("p.AdditionalText").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if m := caseRefRe.FindStringSubmatch(p.Text()); m != nil {
			ref = m[1]
			return false
		}
		return true
	})
	if ref != "" {
		return ref
	}
	adContent.Find("div.Reference").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		if m := caseRefFallback.FindStringSubmatch(div.Text()); m != nil {
			ref = m[1]
			return false
		}
		return true
	})
	return ref
}

// extractCounters reads every div.Reference looking for a heart-glyph
// favorites count and a leading digit group for views. Without the glyph,
// views and favorites are indistinguishable, so a div with no heart glyph
// contributes nothing rather than guessing.
func extractCounters(adContent *goquery.Selection) (views, favorites *int) {
	adContent.Find("div.Reference").Each(func(_ int, div *goquery.Selection) {
		text := strings.TrimSpace(div.Text())
		favMatch := heartRe.FindStringSubmatch(text)
		if favMatch == nil {
			return
		}
		favorites = parsers.ParseViewCount(favMatch[1])
		if viewMatch := viewRe.FindStringSubmatch(text); viewMatch != nil {
			views = parsers.ParseViewCount(viewMatch[1])
		}
	})
	return views, favorites
}

func extractPricePerM2(doc *goquery.Document) (min, avg, max *float64) {
	doc.Find("div.PartnerOffer div.PartnerOfferItem").Each(func(_ int, item *goquery.Selection) {
		label := strings.ToLower(item.Text())
		// Only the amount before the "/m2" unit is parsed, so the unit's own
		// digit never joins the number.
		amount, _, _ := strings.Cut(item.Find("div.PartnerOfferValue").Text(), "/")
		value := parsers.ParsePrice(amount)
		if value == nil {
			return
		}
		f := float64(*value)
		switch {
		case strings.Contains(label, "min"):
			min = &f
		case strings.Contains(label, "moyen"):
			avg = &f
		case strings.Contains(label, "max"):
			max = &f
		}
	})
	return min, avg, max
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	if len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[0])
}

// joinSegments joins an element's text nodes with sep, so a street block
// split by <br/> comes out "Lotissement Le Soleil, Route Nationale 8"
// instead of run together.
func joinSegments(sel *goquery.Selection, sep string) string {
	var parts []string
	sel.Contents().Each(func(_ int, n *goquery.Selection) {
		if t := strings.TrimSpace(n.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, sep)
}

func capitalize(s string) string {
	if s == "" {
		return ""
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
