package report

import (
	"fmt"
	"strings"

	"github.com/jmylchreest/propcheck/pkg/extractor"
	"github.com/jmylchreest/propcheck/pkg/schema"
)

// TimestampLayout is the layout of every generated date in a record.
const TimestampLayout = "2006-01-02T15:04:05Z07:00"

// PropertyRecord is the validated analysis of one listing.
type PropertyRecord struct {
	Address            string                 `json:"address" yaml:"address" validate:"required"`
	Price              int                    `json:"price" yaml:"price" validate:"gte=0"`
	PricePerSqM        int                    `json:"pricePerSqM" yaml:"pricePerSqM" validate:"gt=0"`
	Bedrooms           int                    `json:"bedrooms" yaml:"bedrooms" validate:"gte=0"`
	Bathrooms          int                    `json:"bathrooms" yaml:"bathrooms" validate:"gte=0"`
	Tenure             extractor.Tenure       `json:"tenure" yaml:"tenure" validate:"required,oneof=freehold leasehold shared-ownership commonhold"`
	PropertyType       extractor.PropertyType `json:"propertyType,omitempty" yaml:"propertyType,omitempty" validate:"omitempty,oneof=detached semi-detached terraced flat maisonette bungalow cottage townhouse"`
	MarketTime         int                    `json:"marketTime" yaml:"marketTime" validate:"gte=0"`
	ValueForMoney      float64                `json:"valueForMoney" yaml:"valueForMoney" validate:"gte=0,lte=10"`
	Condition          extractor.Condition    `json:"condition" yaml:"condition" validate:"required,oneof=structural-project renovation ready-to-move"`
	ListingDate        string                 `json:"listingDate,omitempty" yaml:"listingDate,omitempty"`
	PriceReductionDate string                 `json:"priceReductionDate,omitempty" yaml:"priceReductionDate,omitempty"`

	Indices      PriceIndices `json:"indices" yaml:"indices"`
	History      History      `json:"history" yaml:"history"`
	ListingDelta ListingDelta `json:"listingDelta" yaml:"listingDelta"`
	LocalArea    LocalArea    `json:"localArea" yaml:"localArea"`
	Costs        Costs        `json:"costs" yaml:"costs"`
	Mortgage     Mortgage     `json:"mortgage" yaml:"mortgage"`

	Images      []string `json:"images,omitempty" yaml:"images,omitempty" validate:"omitempty,dive,url"`
	LastUpdated string   `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	DataSource  string   `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	Confidence  float64  `json:"confidence" yaml:"confidence" validate:"gte=0,lte=1"`
}

// PriceIndices are valuations from three named sources.
type PriceIndices struct {
	Zoopla  int `json:"zoopla" yaml:"zoopla" validate:"gte=0"`
	ONS     int `json:"ons" yaml:"ons" validate:"gte=0"`
	Acadata int `json:"acadata" yaml:"acadata" validate:"gte=0"`
}

// PriceReduction is one lowering of the asking price.
type PriceReduction struct {
	Date     string `json:"date" yaml:"date" validate:"datetime=2006-01-02T15:04:05Z07:00"`
	Amount   int    `json:"amount" yaml:"amount" validate:"gte=0"`
	NewPrice int    `json:"newPrice" yaml:"newPrice" validate:"gte=0"`
}

// History is the sale history of the property.
type History struct {
	LastSalePrice       int              `json:"lastSalePrice" yaml:"lastSalePrice" validate:"gte=0"`
	LastSaleDate        string           `json:"lastSaleDate" yaml:"lastSaleDate" validate:"datetime=2006-01-02T15:04:05Z07:00"`
	GrowthSinceLastSale float64          `json:"growthSinceLastSale" yaml:"growthSinceLastSale"`
	PriceReductions     []PriceReduction `json:"priceReductions" yaml:"priceReductions" validate:"dive"`
}

// ListingDelta compares the asking price with the market.
type ListingDelta struct {
	Rightmove   float64 `json:"rightmove" yaml:"rightmove"`
	Acadata     float64 `json:"acadata" yaml:"acadata"`
	ListingDate string  `json:"listingDate" yaml:"listingDate" validate:"datetime=2006-01-02T15:04:05Z07:00"`
}

// RecentSale is a nearby completed sale.
type RecentSale struct {
	Address  string `json:"address" yaml:"address" validate:"required"`
	Price    int    `json:"price" yaml:"price" validate:"gte=0"`
	Date     string `json:"date" yaml:"date" validate:"datetime=2006-01-02T15:04:05Z07:00"`
	Distance string `json:"distance" yaml:"distance" validate:"required"`
}

// PostcodeAverage holds average prices per property type.
type PostcodeAverage struct {
	Detached     int `json:"detached" yaml:"detached" validate:"gte=0"`
	SemiDetached int `json:"semiDetached" yaml:"semiDetached" validate:"gte=0"`
	Terraced     int `json:"terraced" yaml:"terraced" validate:"gte=0"`
	Flat         int `json:"flat" yaml:"flat" validate:"gte=0"`
}

// PricePoint is one entry of the area price series.
type PricePoint struct {
	Date  string `json:"date" yaml:"date" validate:"datetime=2006-01-02T15:04:05Z07:00"`
	Price int    `json:"price" yaml:"price" validate:"gte=0"`
}

// LocalArea holds statistics for the surrounding postcode.
type LocalArea struct {
	ONSAreaChange   float64         `json:"onsAreaChange" yaml:"onsAreaChange"`
	RecentSales     []RecentSale    `json:"recentSales" yaml:"recentSales" validate:"dive"`
	AreaAverage     float64         `json:"areaAverage,omitempty" yaml:"areaAverage,omitempty" validate:"omitempty,gt=0"`
	PostcodeAverage PostcodeAverage `json:"postcodeAverage" yaml:"postcodeAverage"`
	PriceHistory    []PricePoint    `json:"priceHistory" yaml:"priceHistory" validate:"min=1,dive"`
}

// Costs are one-off purchase costs.
type Costs struct {
	SDLT         float64 `json:"sdlt" yaml:"sdlt" validate:"gte=0"`
	Conveyancing int     `json:"conveyancing" yaml:"conveyancing" validate:"gt=0"`
	Survey       int     `json:"survey" yaml:"survey" validate:"gt=0"`
}

// Total returns the sum of all purchase costs.
func (c Costs) Total() float64 {
	return c.SDLT + float64(c.Conveyancing) + float64(c.Survey)
}

// MortgagePayment is one loan-to-value scenario.
type MortgagePayment struct {
	Deposit        int     `json:"deposit" yaml:"deposit" validate:"gte=0"`
	LTV            int     `json:"ltv" yaml:"ltv" validate:"gte=0,lte=100"`
	MonthlyPayment int     `json:"monthlyPayment" yaml:"monthlyPayment" validate:"gte=0"`
	Rate           float64 `json:"rate" yaml:"rate" validate:"gt=0"`
}

// Mortgage is the mortgage schedule.
type Mortgage struct {
	MonthlyPayments []MortgagePayment `json:"monthlyPayments" yaml:"monthlyPayments" validate:"min=1,dive"`
}

// InvalidRecordError is returned when a built record breaks an invariant.
type InvalidRecordError struct {
	Errors []schema.ValidationError
}

func (e *InvalidRecordError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid property record: %s", strings.Join(msgs, "; "))
}

var recordSchema = mustRecordSchema()

func mustRecordSchema() schema.Schema {
	s, err := schema.NewSchema[PropertyRecord]()
	if err != nil {
		panic(fmt.Sprintf("report: invalid record schema: %v", err))
	}
	return s
}

// Validate checks every invariant of r. It is the only failure point after
// a record has been built.
func Validate(r *PropertyRecord) error {
	if r == nil {
		return &InvalidRecordError{Errors: []schema.ValidationError{{Field: "record", Message: "is required"}}}
	}
	if errs := recordSchema.Validate(r); len(errs) > 0 {
		return &InvalidRecordError{Errors: errs}
	}
	return nil
}
