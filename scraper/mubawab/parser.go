package mubawab

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"mubawab-scraper/models"
	"mubawab-scraper/services"
)

// Anchor selectors: a page missing any of these three is not a listing
// page at all (error page, redirect, removed ad) and is rejected outright.
const (
	priceSelector = "h3.orangeTit"
	areaSelector  = "h3.greyTit"
	titleSelector = "h1.searchTitle"
)

// Known labels in the main-features block. Anything else is ignored.
const (
	labelPropertyType = "Type of property"
	labelCondition    = "Condition"
	labelAge          = "Age"
	labelOrientation  = "Orientation"
	labelFlooring     = "Flooring"
	labelFloorNumber  = "Floor number"
	labelFloorCount   = "Number of floors"
)

var (
	// wazeLinkRegexp recovers the "lat,lon" pair embedded in the map link
	// the site drops into an inline script block.
	wazeLinkRegexp = regexp.MustCompile(`waze\.com/ul\?ll=([^&"'\s]+)`)
	// individualRegexp marks advertiser blocks that explicitly say the
	// seller is a private person rather than an agency.
	individualRegexp = regexp.MustCompile(`(?i)\b(particular|individual)\b`)
)

// Page wraps one fetched listing document. Building it parses the HTML
// once; Details, ImageURLs and Agent all read the same tree.
type Page struct {
	url string
	doc *goquery.Document
}

// NewPage parses raw HTML into a queryable Page.
func NewPage(pageURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	return &Page{url: pageURL, doc: doc}, nil
}

// ParsePage parses a listing detail page into typed property details.
// Returns nil when the page is not a parseable listing. Used directly by
// the repair drivers to replay stored HTML.
func ParsePage(pageURL, html string) (*models.PropertyDetails, error) {
	page, err := NewPage(pageURL, html)
	if err != nil {
		return nil, err
	}
	return page.Details(), nil
}

// Details extracts the normalized field set. The three anchor fields
// (price, area/city, title) gate the whole parse; every other field fails
// soft to nil on its own.
func (p *Page) Details() *models.PropertyDetails {
	priceTag := p.doc.Find(priceSelector).First()
	areaTag := p.doc.Find(areaSelector).First()
	titleTag := p.doc.Find(titleSelector).First()

	if priceTag.Length() == 0 || areaTag.Length() == 0 || titleTag.Length() == 0 {
		return nil
	}

	details := &models.PropertyDetails{URL: p.url}
	details.Price = services.CleanInteger(priceTag.Text())
	details.Title = services.CleanText(titleTag.Text())
	details.Area, details.City = services.ParseAreaAndCity(areaTag.Text())
	details.Description = p.description()

	labels := p.mainFeatures()
	details.PropertyType = optional(labels, labelPropertyType)
	details.Orientation = optional(labels, labelOrientation)
	details.Flooring = optional(labels, labelFlooring)
	details.Condition = services.CleanCondition(labels[labelCondition])
	details.Age = services.CleanAge(labels[labelAge])
	details.FloorNumber = services.CleanInteger(labels[labelFloorNumber])
	details.FloorCount = services.CleanInteger(labels[labelFloorCount])

	p.detailFeatures(details)
	if details.Rooms == nil && details.Description != nil {
		details.Rooms = services.RoomsFromDescription(*details.Description)
	}

	details.Features = p.featureTags()
	details.Lat, details.Lon = p.coordinates()

	return details
}

// description tries the dedicated container first, then falls back to the
// first paragraph long enough to plausibly be body text rather than a
// caption.
func (p *Page) description() *string {
	if div := p.doc.Find("div.wordBreak").First(); div.Length() > 0 {
		return services.CleanText(div.Text())
	}

	var fallback *string
	p.doc.Find("p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if len(text) > 50 {
			fallback = &text
			return false
		}
		return true
	})
	return fallback
}

// mainFeatures pairs adjacent label/value elements in the features block
// into a transient map. The map never leaves the parser.
func (p *Page) mainFeatures() map[string]string {
	labels := make(map[string]string)
	p.doc.Find("div.adFeatures div.adMainFeatureContent").Each(func(_ int, content *goquery.Selection) {
		label := content.Find("p.adMainFeatureContentLabel").First()
		value := content.Find("p.adMainFeatureContentValue").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		labels[services.CollapseWhitespace(label.Text())] = services.CollapseWhitespace(value.Text())
	})
	return labels
}

// detailFeatures matches unit/label tokens in the detail-feature blocks and
// parses the numeric span next to each.
func (p *Page) detailFeatures(details *models.PropertyDetails) {
	p.doc.Find("div.adDetailFeature").Each(func(_ int, feature *goquery.Selection) {
		span := feature.Find("span").First()
		if span.Length() == 0 {
			return
		}
		text := feature.Text()
		value := span.Text()

		if strings.Contains(text, "m²") {
			details.Size = services.CleanInteger(value)
		}
		if strings.Contains(text, "Piece") {
			details.Rooms = services.CleanInteger(value)
		}
		if strings.Contains(text, "Room") {
			details.Bedrooms = services.CleanInteger(value)
		}
		if strings.Contains(text, "Bathroom") {
			details.Bathrooms = services.CleanInteger(value)
		}
	})
}

// featureTags joins the small caption tags into one comma-separated string.
func (p *Page) featureTags() *string {
	var tags []string
	p.doc.Find("p.fSize11.centered").Each(func(_ int, tag *goquery.Selection) {
		if text := services.CleanText(tag.Text()); text != nil {
			tags = append(tags, *text)
		}
	})
	if len(tags) == 0 {
		return nil
	}
	joined := strings.Join(tags, ", ")
	return &joined
}

// coordinates scans inline scripts for a waze map link carrying "lat,lon".
// First match wins; a malformed pair leaves both coordinates nil.
func (p *Page) coordinates() (*float64, *float64) {
	var lat, lon *float64
	p.doc.Find("script").EachWithBreak(func(_ int, script *goquery.Selection) bool {
		text := script.Text()
		if !strings.Contains(text, "waze.com/ul") {
			return true
		}
		match := wazeLinkRegexp.FindStringSubmatch(text)
		if match == nil {
			return true
		}
		pair, err := url.QueryUnescape(match[1])
		if err != nil {
			return true
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return true
		}
		lat = services.CleanFloat(parts[0])
		lon = services.CleanFloat(parts[1])
		if lat == nil || lon == nil {
			lat, lon = nil, nil
		}
		return false
	})
	return lat, lon
}

// ImageURLs collects the gallery image URLs in display order. Index 0 is
// the main image.
func (p *Page) ImageURLs() []string {
	var urls []string
	seen := make(map[string]struct{})
	p.doc.Find("div.sliderBox img, div.masterSlider img").Each(func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if !strings.HasPrefix(src, "http") {
			return
		}
		if _, dup := seen[src]; dup {
			return
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	})
	return urls
}

// Agent reads the advertiser block. A named link means an agency unless the
// surrounding text explicitly says the seller is a private person; plain
// text with no link means an individual with no profile URL.
func (p *Page) Agent() *models.AgentInfo {
	block := p.doc.Find("div.agencyInfo").First()
	if block.Length() == 0 {
		return nil
	}

	link := block.Find("a.agencyName").First()
	if link.Length() > 0 {
		name := services.CleanText(link.Text())
		if individualRegexp.MatchString(block.Text()) {
			return &models.AgentInfo{Type: models.AgentIndividual, Name: name}
		}
		var profile *string
		if href, ok := link.Attr("href"); ok {
			profile = services.CleanText(href)
		}
		return &models.AgentInfo{Type: models.AgentAgency, Name: name, ProfileURL: profile}
	}

	name := services.CleanText(block.Find("p.agencyName").First().Text())
	if name == nil {
		name = services.CleanText(services.CollapseWhitespace(block.Text()))
	}
	if name == nil {
		return nil
	}
	return &models.AgentInfo{Type: models.AgentIndividual, Name: name}
}

func optional(labels map[string]string, key string) *string {
	if value, ok := labels[key]; ok {
		return services.CleanText(value)
	}
	return nil
}
