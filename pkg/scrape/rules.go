package scrape

import (
	"regexp"
	"strings"
)

// Labels used in the blob. Field extraction keys off these.
const (
	LabelAddress         = "Address"
	LabelPrice           = "Price"
	LabelSize            = "Size/Features"
	LabelBedrooms        = "Bedrooms"
	LabelBathrooms       = "Bathrooms"
	LabelImages          = "Images"
	LabelListingDate     = "Listing Date"
	LabelReductionDate   = "Price Reduction Date"
	LabelMetaPrice       = "Meta Price"
	LabelMetaDescPrice   = "Meta Description Price"
	LabelMetaDescSqFt    = "Meta Description Size (sq ft)"
	LabelMetaDescSqM     = "Meta Description Size (sq m)"
	LabelStructuredPrice = "Structured Price"
	LabelStructuredSize  = "Structured Size"
	LabelFoundPrices     = "Found prices"
	LabelFoundSqFt       = "Found sizes (sq ft)"
	LabelFoundSqM        = "Found sizes (sq m)"
)

// rule is an ordered selector chain for one field. The first selector with
// an element passing accept wins.
type rule struct {
	label     string
	selectors []string
	accept    func(string) bool
}

var rules = []rule{
	{
		label: LabelAddress,
		selectors: []string{
			`h1`,
			`[data-testid="address"]`,
			`[class*="address"]`,
			`.property-address`,
			`.property-header h1`,
			`.property-title`,
			`h1:not(:contains("£"))`,
			`[data-testid="property-address"]`,
		},
		accept: isValidAddress,
	},
	{
		label: LabelPrice,
		selectors: []string{
			`h1:contains("£")`,
			`[data-testid="price"]`,
			`.property-header-price`,
			`.propertyHeaderPrice`,
			`span:contains("£")`,
			`.price`,
			`.property-price`,
			`[class*="price"]`,
			`h1`,
			`h2:contains("£")`,
		},
		accept: func(s string) bool { return strings.Contains(s, "£") },
	},
	{
		label: LabelSize,
		selectors: []string{
			`[data-testid="property-features"]`,
			`.key-features`,
			`li:contains("sq ft")`,
			`li:contains("sq m")`,
			`span:contains("sq ft")`,
			`span:contains("sq m")`,
			`div:contains("sq ft")`,
			`div:contains("sq m")`,
			`.property-features`,
			`.property-description`,
			`[class*="feature"]`,
			`[class*="size"]`,
			`li:contains("SIZE")`,
			`div:contains("SIZE")`,
		},
		accept: func(s string) bool {
			return strings.Contains(s, "sq") || strings.Contains(s, "m²") || strings.Contains(s, "SIZE")
		},
	},
	{
		label: LabelBedrooms,
		selectors: []string{
			`div:contains("BEDROOMS")`,
			`span:contains("BEDROOMS")`,
			`[data-testid*="bedroom"]`,
			`[class*="bedroom"]`,
			`li:contains("bedroom")`,
			`div:contains("bedroom")`,
			`.key-features`,
			`[data-testid="property-features"]`,
			`.property-features`,
		},
		accept: countAcceptor("bedroom"),
	},
	{
		label: LabelBathrooms,
		selectors: []string{
			`div:contains("BATHROOMS")`,
			`span:contains("BATHROOMS")`,
			`[data-testid*="bathroom"]`,
			`[class*="bathroom"]`,
			`li:contains("bathroom")`,
			`div:contains("bathroom")`,
			`.key-features`,
			`[data-testid="property-features"]`,
			`.property-features`,
		},
		accept: countAcceptor("bathroom"),
	},
}

var (
	hasLetter  = regexp.MustCompile(`[a-zA-Z]`)
	countToken = regexp.MustCompile(`(?i)\d|\b(one|two|three|four|five|six|seven|eight|nine|ten)\b`)
)

// isValidAddress rejects prices, fragments and site boilerplate.
func isValidAddress(s string) bool {
	if s == "" || strings.Contains(s, "£") || len(s) <= 5 || !hasLetter.MatchString(s) {
		return false
	}
	lower := strings.ToLower(s)
	return !strings.Contains(lower, "rightmove") &&
		!strings.Contains(lower, "property") &&
		!strings.Contains(lower, "for sale")
}

// countAcceptor accepts text that names the room type and carries a count.
func countAcceptor(room string) func(string) bool {
	return func(s string) bool {
		return strings.Contains(strings.ToLower(s), room) && countToken.MatchString(s)
	}
}
