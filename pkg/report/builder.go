// Package report turns extracted listing fields into a fully populated
// PropertyRecord. Values that cannot be scraped are synthesized from fixed
// formulas so that building never fails; only Validate can.
package report

import (
	"math"
	"time"

	"github.com/jmylchreest/propcheck/pkg/area"
	"github.com/jmylchreest/propcheck/pkg/extractor"
)

// Defaults for values the listing does not provide.
const (
	DefaultAddress       = "Address not found"
	DefaultPricePerSqM   = 10000
	DefaultAreaAverage   = 3000
	DefaultMarketTime    = 30
	DefaultValueForMoney = 7.0

	conveyancingCost = 1500
	surveyCost       = 600
	mortgageMonths   = 25 * 12
	onsAreaChange    = 10.0
	saleGrowth       = 25.0
)

// Data source tags.
const (
	SourceScraped   = "rightmove-scraping"
	SourceEstimated = "rightmove-estimated"
)

var (
	lastSaleDate   = time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	areaPointDate  = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	mortgageLevels = []struct {
		ltv  int
		rate float64
	}{
		{90, 5.25},
		{80, 4.95},
		{70, 4.65},
	}
)

// Inputs is everything Build needs for one listing.
type Inputs struct {
	Fields *extractor.Fields

	// AreaAverage is the looked-up £/m² for the postcode, nil when unknown.
	AreaAverage *float64

	// Degraded is set when the page could not be fetched.
	Degraded bool

	// Fallback is set when the model extraction failed.
	Fallback bool
}

// Builder builds records. The zero value is ready to use.
type Builder struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// NewBuilder creates a Builder using the wall clock.
func NewBuilder() *Builder {
	return &Builder{Now: time.Now}
}

func (b *Builder) now() time.Time {
	if b == nil || b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// Build assembles a record. It never fails; absent fields become defaults.
func (b *Builder) Build(in Inputs) *PropertyRecord {
	f := in.Fields
	if f == nil {
		f = &extractor.Fields{}
	}
	now := b.now()
	price := deref(f.Price)
	p := float64(price)

	r := &PropertyRecord{
		Address:            DefaultAddress,
		Price:              price,
		PricePerSqM:        PricePerSqM(f.Price, f.SquareMeters),
		Bedrooms:           deref(f.Bedrooms),
		Bathrooms:          deref(f.Bathrooms),
		Tenure:             extractor.Freehold,
		Condition:          extractor.ReadyToMove,
		MarketTime:         DefaultMarketTime,
		ValueForMoney:      DefaultValueForMoney,
		ListingDate:        deref(f.ListingDate),
		PriceReductionDate: deref(f.PriceReductionDate),
		Indices: PriceIndices{
			Zoopla:  price,
			ONS:     roundInt(p * 0.98),
			Acadata: roundInt(p * 1.02),
		},
		History: History{
			LastSalePrice:       roundInt(p * 0.8),
			LastSaleDate:        lastSaleDate.Format(TimestampLayout),
			GrowthSinceLastSale: saleGrowth,
			PriceReductions:     []PriceReduction{},
		},
		ListingDelta: ListingDelta{
			ListingDate: now.UTC().Format(TimestampLayout),
		},
		LocalArea: LocalArea{
			ONSAreaChange: onsAreaChange,
			RecentSales:   []RecentSale{},
			AreaAverage:   DefaultAreaAverage,
			PostcodeAverage: PostcodeAverage{
				Detached:     roundInt(p * 1.5),
				SemiDetached: roundInt(p * 1.2),
				Terraced:     price,
				Flat:         roundInt(p * 0.8),
			},
			PriceHistory: []PricePoint{
				{Date: areaPointDate.Format(TimestampLayout), Price: roundInt(p * 0.9)},
			},
		},
		Costs: Costs{
			SDLT:         SDLT(p),
			Conveyancing: conveyancingCost,
			Survey:       surveyCost,
		},
		Mortgage: Mortgage{
			MonthlyPayments: mortgagePayments(p),
		},
		Images:      f.Images,
		LastUpdated: now.UTC().Format(TimestampLayout),
		DataSource:  SourceScraped,
		Confidence:  Confidence(f.Present(), in.Degraded, in.Fallback),
	}

	if f.Address != nil && *f.Address != "" {
		r.Address = *f.Address
	}
	if f.Tenure != nil {
		r.Tenure = *f.Tenure
	}
	if f.PropertyType != nil {
		r.PropertyType = *f.PropertyType
	}
	if f.Condition != nil {
		r.Condition = *f.Condition
	}
	if f.ListingDate != nil {
		r.MarketTime = MarketTime(*f.ListingDate, now)
		if d, err := time.ParseInLocation(extractor.DateLayout, *f.ListingDate, time.UTC); err == nil {
			r.ListingDelta.ListingDate = d.Format(TimestampLayout)
		}
	}
	if in.AreaAverage != nil && *in.AreaAverage > 0 {
		r.LocalArea.AreaAverage = *in.AreaAverage
		r.ValueForMoney = area.Score(*in.AreaAverage, float64(r.PricePerSqM))
	}
	if in.Degraded || in.Fallback {
		r.DataSource = SourceEstimated
	}

	return r
}

// PricePerSqM returns round(price/area), or the default when either is missing.
func PricePerSqM(price *int, sqm *float64) int {
	if price == nil || sqm == nil || *price <= 0 || *sqm <= 0 {
		return DefaultPricePerSqM
	}
	return roundInt(float64(*price) / *sqm)
}

// SDLT computes Stamp Duty Land Tax with marginal bands: 0% to £250k, 5% to
// £925k, 10% to £1.5M and 12% above.
func SDLT(price float64) float64 {
	switch {
	case price <= 250000:
		return 0
	case price <= 925000:
		return (price - 250000) * 0.05
	case price <= 1500000:
		return 33750 + (price-925000)*0.10
	default:
		return 91250 + (price-1500000)*0.12
	}
}

// MonthlyPayment is the fixed-rate amortising payment for principal at
// annualRate percent over months. A zero rate repays principal evenly.
func MonthlyPayment(principal, annualRate float64, months int) float64 {
	if months <= 0 {
		return 0
	}
	r := annualRate / 100 / 12
	if r == 0 {
		return principal / float64(months)
	}
	growth := math.Pow(1+r, float64(months))
	return principal * (r * growth) / (growth - 1)
}

// MarketTime returns whole days (rounded up) between a DD/MM/YYYY listing
// date and now. Unparsable or non-positive results give the default.
func MarketTime(listingDate string, now time.Time) int {
	d, err := time.ParseInLocation(extractor.DateLayout, listingDate, now.Location())
	if err != nil {
		return DefaultMarketTime
	}
	diff := now.Sub(d)
	if diff < 0 {
		diff = -diff
	}
	days := int(math.Ceil(diff.Hours() / 24))
	if days <= 0 {
		return DefaultMarketTime
	}
	return days
}

// Confidence is the share of scored fields present, halved for a degraded
// fetch and cut by a quarter after an extraction fallback, to 2 decimals.
func Confidence(present int, degraded, fallback bool) float64 {
	c := float64(present) / extractor.ScoredFieldCount
	if degraded {
		c *= 0.5
	}
	if fallback {
		c *= 0.75
	}
	return math.Round(math.Min(1, math.Max(0, c))*100) / 100
}

func mortgagePayments(price float64) []MortgagePayment {
	out := make([]MortgagePayment, 0, len(mortgageLevels))
	for _, lvl := range mortgageLevels {
		loan := price * float64(lvl.ltv) / 100
		out = append(out, MortgagePayment{
			Deposit:        roundInt(price - loan),
			LTV:            lvl.ltv,
			MonthlyPayment: roundInt(MonthlyPayment(loan, lvl.rate, mortgageMonths)),
			Rate:           lvl.rate,
		})
	}
	return out
}

func roundInt(v float64) int {
	return int(math.Round(v))
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
