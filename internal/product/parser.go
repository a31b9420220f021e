package product

import (
	"bytes"
	"strings"

	"catalog_enricher/internal/catalog"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
)

// Selectors are the CSS selectors that locate each field on a search page
type Selectors struct {
	Title  string `yaml:"title"`
	SKU    string `yaml:"sku"`
	Colors string `yaml:"colors"`
	Sizes  string `yaml:"sizes"`
	Images string `yaml:"images"`
}

// DefaultSelectors matches the vendor's ajax search markup
func DefaultSelectors() Selectors {
	return Selectors{
		Title:  ".item-name",
		SKU:    ".item-sku",
		Colors: ".swatch-color .swatch-element",
		Sizes:  ".swatch-size .swatch-element",
		Images: ".product-gallery img",
	}
}

// Parser turns a product search page into a ProductDetail
type Parser struct {
	selectors Selectors
}

func NewParser(selectors Selectors) *Parser {
	defaults := DefaultSelectors()
	if selectors.Title == "" {
		selectors.Title = defaults.Title
	}
	if selectors.SKU == "" {
		selectors.SKU = defaults.SKU
	}
	if selectors.Colors == "" {
		selectors.Colors = defaults.Colors
	}
	if selectors.Sizes == "" {
		selectors.Sizes = defaults.Sizes
	}
	if selectors.Images == "" {
		selectors.Images = defaults.Images
	}
	return &Parser{selectors: selectors}
}

// Parse extracts every field independently. A missing field falls back to its
// sentinel; Parse itself never fails.
func (p *Parser) Parse(html []byte) catalog.ProductDetail {
	detail := catalog.EmptyProductDetail()

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		log.Warn().Err(err).Msg("Failed to parse product HTML")
		return detail
	}

	if name := firstText(doc, p.selectors.Title); name != "" {
		detail.Name = name
	}
	if sku := firstText(doc, p.selectors.SKU); sku != "" {
		detail.SKU = sku
	}
	detail.Colors = optionValues(doc, p.selectors.Colors)
	detail.Sizes = optionValues(doc, p.selectors.Sizes)

	for i, src := range imageSources(doc, p.selectors.Images) {
		detail.Images[i] = src
	}

	log.Debug().
		Str("name", detail.Name).
		Str("sku", detail.SKU).
		Int("colors", len(detail.Colors)).
		Int("sizes", len(detail.Sizes)).
		Msg("Parsed product page")

	return detail
}

// firstText returns the whitespace-normalized text of the first match
func firstText(doc *goquery.Document, selector string) string {
	return strings.Join(strings.Fields(doc.Find(selector).First().Text()), " ")
}

// optionValues collects swatch values in document order without duplicates.
// The data-value attribute wins over the element text.
func optionValues(doc *goquery.Document, selector string) []string {
	values := []string{}
	seen := make(map[string]bool)
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		value, ok := s.Attr("data-value")
		value = strings.TrimSpace(value)
		if !ok || value == "" {
			value = strings.Join(strings.Fields(s.Text()), " ")
		}
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		values = append(values, value)
	})
	return values
}

// imageSources returns up to MaxImages gallery URLs, preferring the lazy-load
// attribute over src
func imageSources(doc *goquery.Document, selector string) []string {
	var sources []string
	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		src := strings.TrimSpace(s.AttrOr("data-src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("src", ""))
		}
		if src != "" {
			sources = append(sources, src)
		}
		return len(sources) < catalog.MaxImages
	})
	return sources
}
