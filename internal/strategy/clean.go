package strategy

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
	titleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	priceRe  = regexp.MustCompile(`[$£€]\s*(\d+(?:\.\d{1,2})?)`)

	// inlineProductRe matches inline JS assignments of product/variant data,
	// the second embedded-data shape next to JSON-LD blocks.
	inlineProductRe = regexp.MustCompile(`(?is)(?:var|let|const|window\.)\s*(?:__)?(?:product|variants|productData)(?:__)?\s*=\s*(\{.*?\}|\[.*?\])\s*;`)
)

// sizeVocabulary is the canonical garment size ladder, in display order.
var sizeVocabulary = []string{
	"XXS", "XS", "S", "M", "L", "XL", "2XL", "3XL", "4XL", "5XL", "6XL",
	"OS", "YXS", "YS", "YM", "YL", "YXL",
}

// cleanHTML strips script and style blocks, removes tags, collapses
// whitespace, and truncates to the character budget. The result is what the
// extraction model receives; the budget keeps the request inside the
// collaborator's input-size bound.
func cleanHTML(html string, budget int) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	html = tagRe.ReplaceAllString(html, " ")
	html = spaceRe.ReplaceAllString(html, " ")
	html = blankRe.ReplaceAllString(html, "\n\n")
	html = strings.TrimSpace(html)
	if budget > 0 && len(html) > budget {
		html = html[:budget]
	}
	return html
}

// pageTitle extracts and trims the <title> tag, dropping the site-name
// suffix suppliers append after a separator.
func pageTitle(html string) string {
	m := titleRe.FindStringSubmatch(html)
	if len(m) < 2 {
		return ""
	}
	title := strings.TrimSpace(m[1])
	for _, sep := range []string{" | ", " – ", " - "} {
		if i := strings.Index(title, sep); i > 0 {
			title = title[:i]
			break
		}
	}
	return strings.TrimSpace(title)
}

// pagePrice returns the first currency-marked amount on the page.
func pagePrice(html string) *decimal.Decimal {
	m := priceRe.FindStringSubmatch(html)
	if len(m) < 2 {
		return nil
	}
	d, err := decimal.NewFromString(m[1])
	if err != nil {
		return nil
	}
	return &d
}

// pageSizes matches the page against the canonical size vocabulary,
// returning matches in ladder order rather than page order.
func pageSizes(html string) []string {
	var sizes []string
	for _, s := range sizeVocabulary {
		re := regexp.MustCompile(`(?i)[>"'\s]` + s + `[<"'\s]`)
		if re.MatchString(html) {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

// structuredDataBlocks extracts embedded structured data from the page:
// JSON-LD script payloads and inline JS product assignments. The blocks are
// passed verbatim to the extraction model as hints.
func structuredDataBlocks(html string) []string {
	var blocks []string

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text != "" {
				blocks = append(blocks, text)
			}
		})
	}

	for _, m := range inlineProductRe.FindAllStringSubmatch(html, -1) {
		if len(m) > 1 {
			blocks = append(blocks, strings.TrimSpace(m[1]))
		}
	}

	return blocks
}

// metaDescription pulls the meta description content, if any.
func metaDescription(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return strings.TrimSpace(desc)
}
