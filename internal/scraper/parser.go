package scraper

import (
	"regexp"
	"strings"

	"elizabeth/agent/internal/domain"

	"github.com/PuerkitoBio/goquery"
)

// PageParser extracts structured characteristics from a loaded supplier
// product page. All DOM coupling (selectors, label matching) lives here so
// the logic can be unit-tested against fixture documents.
type PageParser struct{}

func NewPageParser() *PageParser {
	return &PageParser{}
}

// Selector fallbacks for the product image link, most specific first.
var imageSelectors = []string{
	`#artInfo-container div.galleryInfo div.main-image a[data-imagelightbox="tecdoc"]`,
	`#artInfo-container div.main-image a[data-imagelightbox="tecdoc"]`,
	`#artInfo-container a[data-imagelightbox="tecdoc"]`,
}

// Known label variants for the property rows. Matching is substring-based on
// the normalized label, not exact: the portal renders slightly different
// wording across card layouts.
var (
	weightLabels = []string{"вес в индивидуальной упаковке", "вес в инд", "вес"}
	lengthLabels = []string{"длина"}
	heightLabels = []string{"высота"}
	widthLabels  = []string{"ширина"}
	analogLabels = []string{"код аналога"}
)

// Cross-reference numbers live on a separate tab of the card; the section is
// rendered lazily, hence the fallback chain.
var crossSelectors = []string{
	`#crossInfo-container .cross-row .cross-article`,
	`#crossInfo-container td.cross-article`,
	`#crossInfo-container .item-value`,
}

var artidPathPattern = regexp.MustCompile(`(?i)/artinfo/index/([^/?#]+)`)

// ExtractArtID pulls the supplier article id out of a product page path.
func ExtractArtID(path string) string {
	matches := artidPathPattern.FindStringSubmatch(path)
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

func propsContainer(doc *goquery.Document) *goquery.Selection {
	return doc.Find("#main_info .content-part-props")
}

// IsReady reports whether the card finished rendering: the article container
// exists and the properties region is populated. The portal builds both
// client-side, so a freshly served document fails this check.
func (p *PageParser) IsReady(doc *goquery.Document) bool {
	if doc.Find("#artInfo-container").Length() == 0 {
		return false
	}
	props := propsContainer(doc)
	return props.Length() > 0 && props.Find("div").Length() > 0
}

func isAbsoluteHTTP(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ExtractImageURL walks the selector fallbacks and accepts only absolute
// http(s) URLs, preferring the id attribute over href (the gallery widget
// stores the full-size URL in id).
func (p *PageParser) ExtractImageURL(doc *goquery.Document) *string {
	for _, selector := range imageSelectors {
		link := doc.Find(selector).First()
		if link.Length() == 0 {
			continue
		}
		if idAttr, ok := link.Attr("id"); ok && isAbsoluteHTTP(idAttr) {
			return &idAttr
		}
		if hrefAttr, ok := link.Attr("href"); ok && isAbsoluteHTTP(hrefAttr) {
			return &hrefAttr
		}
		return nil
	}
	return nil
}

// normalizeLabel collapses whitespace, strips colons and lowercases, so
// "Вес  в инд. упаковке:" and "вес в инд упаковке" compare equal enough for
// substring matching.
func normalizeLabel(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	collapsed = strings.ReplaceAll(collapsed, ":", "")
	return strings.ToLower(strings.TrimSpace(collapsed))
}

func (p *PageParser) findPropValue(doc *goquery.Document, targets []string) *string {
	container := propsContainer(doc)
	if container.Length() == 0 {
		return nil
	}

	normalizedTargets := make([]string, 0, len(targets))
	for _, target := range targets {
		normalizedTargets = append(normalizedTargets, normalizeLabel(target))
	}

	var found *string
	container.Find("div").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		labelNode := row.Find(".item-prop").First()
		valueNode := row.Find(".item-value").First()
		if labelNode.Length() == 0 || valueNode.Length() == 0 {
			return true
		}

		labelText := labelNode.AttrOr("title", "")
		if labelText == "" {
			labelText = labelNode.Text()
		}
		label := normalizeLabel(labelText)
		if label == "" {
			return true
		}

		for _, target := range normalizedTargets {
			if strings.Contains(label, target) {
				value := strings.TrimSpace(valueNode.Text())
				if value != "" {
					found = &value
				}
				return false
			}
		}
		return true
	})
	return found
}

// ExtractOEMNumbers collects cross-reference numbers from the crosses tab,
// deduplicated in document order.
func (p *PageParser) ExtractOEMNumbers(doc *goquery.Document) []string {
	var numbers []string
	seen := make(map[string]struct{})

	for _, selector := range crossSelectors {
		doc.Find(selector).Each(func(_ int, cell *goquery.Selection) {
			number := strings.TrimSpace(cell.Text())
			if number == "" {
				return
			}
			if _, ok := seen[number]; ok {
				return
			}
			seen[number] = struct{}{}
			numbers = append(numbers, number)
		})
		if len(numbers) > 0 {
			break
		}
	}
	return numbers
}

// normalizeWeight canonicalizes a raw weight value to grams when the page
// names a recognizable unit, falling back to the bare number otherwise.
func normalizeWeight(raw string) *float64 {
	if grams := domain.WeightToGrams(raw); grams != nil {
		value := float64(*grams)
		return &value
	}
	return domain.ExtractDecimal(raw)
}

// normalizeDimension canonicalizes a raw dimension to millimeters, same
// fallback rule as normalizeWeight.
func normalizeDimension(raw string) *float64 {
	if mm := domain.LengthToMillimeters(raw); mm != nil {
		value := float64(*mm)
		return &value
	}
	return domain.ExtractDecimal(raw)
}

// Extract pulls the characteristics off a ready page. Raw property values are
// canonicalized with locale-tolerant extraction, weights to grams and
// dimensions to millimeters; a value that does not parse stays null rather
// than aborting the scrape.
func (p *PageParser) Extract(doc *goquery.Document) domain.Characteristics {
	chars := domain.Characteristics{
		ImageURL: p.ExtractImageURL(doc),
	}

	if raw := p.findPropValue(doc, weightLabels); raw != nil {
		chars.Weight = normalizeWeight(*raw)
	}
	if raw := p.findPropValue(doc, lengthLabels); raw != nil {
		chars.Length = normalizeDimension(*raw)
	}
	if raw := p.findPropValue(doc, heightLabels); raw != nil {
		chars.Height = normalizeDimension(*raw)
	}
	if raw := p.findPropValue(doc, widthLabels); raw != nil {
		chars.Width = normalizeDimension(*raw)
	}
	if raw := p.findPropValue(doc, analogLabels); raw != nil {
		chars.AnalogCode = raw
	}

	return chars
}
