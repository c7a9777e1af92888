package extractor

import (
	"reflect"
	"strings"
)

// DateLayout is the DD/MM/YYYY layout listing pages use. Single-digit day
// and month are accepted.
const DateLayout = "2/1/2006"

// PropertyType is the building category.
type PropertyType string

const (
	Detached     PropertyType = "detached"
	SemiDetached PropertyType = "semi-detached"
	Terraced     PropertyType = "terraced"
	Flat         PropertyType = "flat"
	Maisonette   PropertyType = "maisonette"
	Bungalow     PropertyType = "bungalow"
	Cottage      PropertyType = "cottage"
	Townhouse    PropertyType = "townhouse"
)

// PropertyTypes lists every PropertyType in display order.
var PropertyTypes = []PropertyType{Detached, SemiDetached, Terraced, Flat, Maisonette, Bungalow, Cottage, Townhouse}

// Valid reports whether t is a known property type.
func (t PropertyType) Valid() bool {
	for _, v := range PropertyTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Tenure is the legal ownership form.
type Tenure string

const (
	Freehold        Tenure = "freehold"
	Leasehold       Tenure = "leasehold"
	SharedOwnership Tenure = "shared-ownership"
	Commonhold      Tenure = "commonhold"
)

// Valid reports whether t is a known tenure.
func (t Tenure) Valid() bool {
	switch t {
	case Freehold, Leasehold, SharedOwnership, Commonhold:
		return true
	}
	return false
}

// Condition is the state of repair.
type Condition string

const (
	ReadyToMove       Condition = "ready-to-move"
	Renovation        Condition = "renovation"
	StructuralProject Condition = "structural-project"
)

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	switch c {
	case ReadyToMove, Renovation, StructuralProject:
		return true
	}
	return false
}

// Fields is the set of values pulled from a listing. Every field is
// optional; nil means the value could not be determined.
type Fields struct {
	Address            *string       `json:"address" description:"Full property address, including street, town and postcode district (e.g. \"Main Street, Tiddington, CV37\")"`
	Price              *int          `json:"price" validate:"omitempty,gte=0" description:"Asking price in GBP, digits only"`
	SquareMeters       *float64      `json:"square_meters" validate:"omitempty,gt=0" description:"Internal floor area in square metres; convert from sq ft by multiplying by 0.092903"`
	Bedrooms           *int          `json:"bedrooms" validate:"omitempty,min=1,max=20" description:"Number of bedrooms"`
	Bathrooms          *int          `json:"bathrooms" validate:"omitempty,min=1,max=15" description:"Number of bathrooms"`
	PropertyType       *PropertyType `json:"property_type" validate:"omitempty,oneof=detached semi-detached terraced flat maisonette bungalow cottage townhouse" description:"Building category; an apartment is a flat"`
	Tenure             *Tenure       `json:"tenure" validate:"omitempty,oneof=freehold leasehold shared-ownership commonhold" description:"Ownership form"`
	Condition          *Condition    `json:"condition" validate:"omitempty,oneof=ready-to-move renovation structural-project" description:"State of repair inferred from the description"`
	ListingDate        *string       `json:"listing_date" validate:"omitempty,datetime=2/1/2006" description:"Date from \"Added on DD/MM/YYYY\", as DD/MM/YYYY"`
	PriceReductionDate *string       `json:"price_reduction_date" validate:"omitempty,datetime=2/1/2006" description:"Date from \"Reduced on DD/MM/YYYY\", as DD/MM/YYYY"`
	Images             []string      `json:"images,omitempty" validate:"omitempty,dive,url" description:"Absolute URLs of listing photos"`
}

// ScoredFieldCount is the number of scalar fields used for confidence.
const ScoredFieldCount = 10

// Present returns how many scalar fields are set. Images are not counted.
func (f *Fields) Present() int {
	n := 0
	v := reflect.ValueOf(f).Elem()
	for i := 0; i < v.NumField(); i++ {
		if fv := v.Field(i); fv.Kind() == reflect.Ptr && !fv.IsNil() {
			n++
		}
	}
	return n
}

// Fill copies into f every field that is unset in f and set in src, and
// returns the JSON names of the fields it filled.
func (f *Fields) Fill(src *Fields) []string {
	if src == nil {
		return nil
	}
	var filled []string
	dst := reflect.ValueOf(f).Elem()
	from := reflect.ValueOf(src).Elem()
	t := dst.Type()
	for i := 0; i < dst.NumField(); i++ {
		d, s := dst.Field(i), from.Field(i)
		if !isUnset(d) || isUnset(s) {
			continue
		}
		d.Set(s)
		filled = append(filled, jsonName(t.Field(i)))
	}
	return filled
}

func isUnset(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr:
		return v.IsNil()
	case reflect.Slice:
		return v.Len() == 0
	}
	return v.IsZero()
}

func jsonName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	if name == "" {
		return sf.Name
	}
	return name
}
