package schema

import (
	"reflect"
	"strings"
	"testing"
)

// Test structs for NewSchema

type SimpleStruct struct {
	Name  string `json:"name" description:"The name"`
	Age   int    `json:"age" description:"The age in years"`
	Email string `json:"email,omitempty" description:"Optional email"`
}

type NestedStruct struct {
	Title   string `json:"title" description:"Title"`
	Address struct {
		Street string `json:"street" description:"Street address"`
		City   string `json:"city" description:"City name"`
	} `json:"address" description:"Address details"`
}

type StructWithSlice struct {
	Title string   `json:"title" description:"Title"`
	Tags  []string `json:"tags" description:"List of tags"`
	Rooms []struct {
		Name string  `json:"name" description:"Room name"`
		Area float64 `json:"area" description:"Floor area"`
	} `json:"rooms" description:"Rooms"`
}

type StructWithAllTypes struct {
	StringField  string  `json:"string_field"`
	IntField     int     `json:"int_field"`
	Int64Field   int64   `json:"int64_field"`
	Float32Field float32 `json:"float32_field"`
	Float64Field float64 `json:"float64_field"`
	BoolField    bool    `json:"bool_field"`
}

type StructWithExamples struct {
	Status string `json:"status" examples:"active,pending,completed"`
}

// NullableListing mirrors the shape used for listing extraction.
type NullableListing struct {
	Price    *int     `json:"price" validate:"omitempty,gte=0" description:"Asking price"`
	Bedrooms *int     `json:"bedrooms" validate:"omitempty,min=1,max=20"`
	Area     *float64 `json:"area" validate:"omitempty,gt=0"`
	Tenure   *string  `json:"tenure" validate:"omitempty,oneof=freehold leasehold"`
	Listed   *string  `json:"listed" validate:"omitempty,datetime=02/01/2006"`
	Images   []string `json:"images,omitempty" validate:"omitempty,dive,url"`
	Internal string   `json:"-"`
}

func fieldsByName(s Schema) map[string]Field {
	m := make(map[string]Field)
	for _, f := range s.Fields {
		m[f.Name] = f
	}
	return m
}

func intPtr(v int) *int { return &v }

// TestNewSchema_BasicStruct tests schema creation from a simple struct
func TestNewSchema_BasicStruct(t *testing.T) {
	s, err := NewSchema[SimpleStruct]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	if s.Name != "SimpleStruct" {
		t.Errorf("expected Name 'SimpleStruct', got %q", s.Name)
	}

	if len(s.Fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(s.Fields))
	}

	fieldMap := fieldsByName(s)

	nameField := fieldMap["name"]
	if nameField.Type != TypeString {
		t.Errorf("expected name field type 'string', got %q", nameField.Type)
	}
	if !nameField.Required {
		t.Error("expected name field to be required")
	}
	if nameField.Description != "The name" {
		t.Errorf("expected description 'The name', got %q", nameField.Description)
	}

	if fieldMap["age"].Type != TypeInteger {
		t.Errorf("expected age field type 'integer', got %q", fieldMap["age"].Type)
	}

	if fieldMap["email"].Required {
		t.Error("expected email field to be optional (has omitempty)")
	}
}

// TestNewSchema_NestedStruct tests schema creation with nested objects
func TestNewSchema_NestedStruct(t *testing.T) {
	s, err := NewSchema[NestedStruct]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	address := fieldsByName(s)["address"]
	if address.Type != TypeObject {
		t.Errorf("expected address field type 'object', got %q", address.Type)
	}
	if len(address.Properties) != 2 {
		t.Errorf("expected 2 properties in address, got %d", len(address.Properties))
	}
}

// TestNewSchema_NullableFields tests pointer and tag handling
func TestNewSchema_NullableFields(t *testing.T) {
	s, err := NewSchema[NullableListing]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	fields := fieldsByName(s)
	if _, ok := fields["Internal"]; ok {
		t.Error("expected json:\"-\" field to be skipped")
	}
	if len(s.Fields) != 6 {
		t.Fatalf("expected 6 fields, got %d", len(s.Fields))
	}

	price := fields["price"]
	if price.Required || !price.Nullable {
		t.Errorf("expected price to be optional and nullable, got %+v", price)
	}
	if price.Type != TypeInteger {
		t.Errorf("expected price type integer, got %q", price.Type)
	}

	tenure := fields["tenure"]
	if !reflect.DeepEqual(tenure.Enum, []string{"freehold", "leasehold"}) {
		t.Errorf("expected enum from oneof, got %v", tenure.Enum)
	}

	images := fields["images"]
	if !images.Nullable || images.Items == nil || images.Items.Type != TypeString {
		t.Errorf("expected nullable string array, got %+v", images)
	}
}

// TestNewSchema_WithSliceFields tests array type detection
func TestNewSchema_WithSliceFields(t *testing.T) {
	s, err := NewSchema[StructWithSlice]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	fieldMap := fieldsByName(s)

	tags := fieldMap["tags"]
	if tags.Type != TypeArray {
		t.Errorf("expected tags field type 'array', got %q", tags.Type)
	}
	if tags.Items == nil || tags.Items.Type != TypeString {
		t.Fatalf("expected string items, got %+v", tags.Items)
	}

	rooms := fieldMap["rooms"]
	if rooms.Items == nil || rooms.Items.Type != TypeObject {
		t.Fatalf("expected object items, got %+v", rooms.Items)
	}
	if len(rooms.Items.Properties) != 2 {
		t.Errorf("expected 2 properties in room items, got %d", len(rooms.Items.Properties))
	}
}

// TestNewSchema_NonStructType_Error tests error on non-struct types
func TestNewSchema_NonStructType_Error(t *testing.T) {
	_, err := NewSchema[string]()
	if err == nil {
		t.Fatal("expected error for non-struct type")
	}
	if !strings.Contains(err.Error(), "struct type") {
		t.Errorf("expected error about struct type, got: %v", err)
	}
}

// TestNewSchema_WithDescription tests the WithDescription option
func TestNewSchema_WithDescription(t *testing.T) {
	desc := "A simple test schema for demonstration"
	s, err := NewSchema[SimpleStruct](WithDescription(desc))
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	if s.Description != desc {
		t.Errorf("expected description %q, got %q", desc, s.Description)
	}
}

// TestNewSchema_AllNumericTypes tests all numeric type mappings
func TestNewSchema_AllNumericTypes(t *testing.T) {
	s, err := NewSchema[StructWithAllTypes]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	fieldMap := fieldsByName(s)

	tests := []struct {
		name     string
		expected FieldType
	}{
		{"string_field", TypeString},
		{"int_field", TypeInteger},
		{"int64_field", TypeInteger},
		{"float32_field", TypeNumber},
		{"float64_field", TypeNumber},
		{"bool_field", TypeBoolean},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fieldMap[tt.name].Type; got != tt.expected {
				t.Errorf("expected %s type %q, got %q", tt.name, tt.expected, got)
			}
		})
	}
}

// TestNewSchema_WithExamples tests examples tag parsing
func TestNewSchema_WithExamples(t *testing.T) {
	s, err := NewSchema[StructWithExamples]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	expected := []string{"active", "pending", "completed"}
	if got := s.Fields[0].Examples; !reflect.DeepEqual(got, expected) {
		t.Errorf("expected examples %v, got %v", expected, got)
	}
}

// TestValidate_StructData tests validator integration on struct values
func TestValidate_StructData(t *testing.T) {
	s, err := NewSchema[NullableListing]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	valid := &NullableListing{Price: intPtr(250000), Bedrooms: intPtr(3)}
	if errs := s.Validate(valid); len(errs) != 0 {
		t.Errorf("expected no validation errors, got %v", errs)
	}

	invalid := &NullableListing{Price: intPtr(-1), Bedrooms: intPtr(25)}
	errs := s.Validate(invalid)
	if len(errs) != 2 {
		t.Fatalf("expected 2 validation errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Message, "at least 0") {
		t.Errorf("unexpected message %q", errs[0].Message)
	}
}

// TestFilter tests per-field filtering of model output
func TestFilter(t *testing.T) {
	s, err := NewSchema[NullableListing]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	tests := []struct {
		name     string
		key      string
		in       any
		want     any
		wantErrs int
	}{
		{"valid_integer", "price", float64(325000), float64(325000), 0},
		{"zero_price_allowed", "price", float64(0), float64(0), 0},
		{"negative_price", "price", float64(-5), nil, 1},
		{"price_beyond_int", "price", 1e20, nil, 1},
		{"fractional_integer", "bedrooms", 2.5, nil, 1},
		{"bedrooms_above_max", "bedrooms", float64(21), nil, 1},
		{"bedrooms_below_min", "bedrooms", float64(0), nil, 1},
		{"string_for_integer", "bedrooms", "three", nil, 1},
		{"area_must_be_positive", "area", float64(0), nil, 1},
		{"area_fraction_ok", "area", 92.9, 92.9, 0},
		{"enum_member", "tenure", "leasehold", "leasehold", 0},
		{"enum_outsider", "tenure", "rental", nil, 1},
		{"date_layout", "listed", "14/03/2024", "14/03/2024", 0},
		{"date_bad_layout", "listed", "2024-03-14", nil, 1},
		{"null_kept", "tenure", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errs := s.Filter(map[string]any{tt.key: tt.in})
			if len(errs) != tt.wantErrs {
				t.Errorf("expected %d errors, got %d: %v", tt.wantErrs, len(errs), errs)
			}
			if got := out[tt.key]; got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestFilter_ArrayItems tests that bad array items are dropped individually
func TestFilter_ArrayItems(t *testing.T) {
	s, err := NewSchema[NullableListing]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	out, errs := s.Filter(map[string]any{
		"images": []any{"https://example.com/a.jpg", "not a url", 42, "https://example.com/b.jpg"},
		"extra":  "dropped",
	})

	want := []any{"https://example.com/a.jpg", "https://example.com/b.jpg"}
	if !reflect.DeepEqual(out["images"], want) {
		t.Errorf("expected %v, got %v", want, out["images"])
	}
	if len(errs) != 2 {
		t.Errorf("expected 2 dropped-item errors, got %v", errs)
	}
	if _, ok := out["extra"]; ok {
		t.Error("expected unknown keys to be dropped")
	}
	if v, ok := out["price"]; !ok || v != nil {
		t.Errorf("expected absent fields to be present as nil, got %v (%v)", v, ok)
	}
}

// TestFilter_RequiredField tests required non-nullable fields
func TestFilter_RequiredField(t *testing.T) {
	s, err := NewSchema[SimpleStruct]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	_, errs := s.Filter(map[string]any{"age": float64(30)})
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "required") {
		t.Errorf("expected missing name error, got %v", errs)
	}
}

// TestValidateFieldType tests type validation for different field types
func TestValidateFieldType(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		value   any
		wantErr bool
	}{
		{"string_valid", Field{Type: TypeString}, "hello", false},
		{"string_invalid", Field{Type: TypeString}, 123, true},
		{"integer_from_int", Field{Type: TypeInteger}, 42, false},
		{"integer_from_float64", Field{Type: TypeInteger}, float64(42), false},
		{"integer_fraction", Field{Type: TypeInteger}, 42.5, true},
		{"integer_invalid", Field{Type: TypeInteger}, "not a number", true},
		{"number_from_float64", Field{Type: TypeNumber}, 3.14, false},
		{"number_invalid", Field{Type: TypeNumber}, "not a number", true},
		{"boolean_valid", Field{Type: TypeBoolean}, true, false},
		{"boolean_invalid", Field{Type: TypeBoolean}, "true", true},
		{"array_valid", Field{Type: TypeArray}, []any{"a", "b"}, false},
		{"array_invalid", Field{Type: TypeArray}, "not an array", true},
		{"object_valid", Field{Type: TypeObject}, map[string]any{"key": "value"}, false},
		{"object_invalid", Field{Type: TypeObject}, "not an object", true},
		{"null_optional", Field{Type: TypeString}, nil, false},
		{"null_required", Field{Type: TypeString, Required: true}, nil, true},
		{"null_nullable", Field{Type: TypeString, Required: true, Nullable: true}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateFieldType(tt.field, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateFieldType() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestUnmarshal_WithTargetType tests unmarshaling to the original struct type
func TestUnmarshal_WithTargetType(t *testing.T) {
	s, err := NewSchema[SimpleStruct]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	result, err := s.Unmarshal([]byte(`{"name": "John", "age": 30}`))
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	ss, ok := result.(*SimpleStruct)
	if !ok {
		t.Fatalf("expected *SimpleStruct, got %T", result)
	}
	if ss.Name != "John" || ss.Age != 30 {
		t.Errorf("unexpected result %+v", ss)
	}
}

// TestUnmarshal_InvalidJSON tests error handling for invalid JSON
func TestUnmarshal_InvalidJSON(t *testing.T) {
	s, _ := NewSchema[SimpleStruct]()

	if _, err := s.Unmarshal([]byte(`{invalid}`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// TestToJSONSchema tests JSON Schema generation
func TestToJSONSchema(t *testing.T) {
	s, err := NewSchema[SimpleStruct](WithDescription("A simple schema"))
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	jsonSchema, err := s.ToJSONSchema()
	if err != nil {
		t.Fatalf("ToJSONSchema failed: %v", err)
	}

	if jsonSchema["type"] != "object" {
		t.Errorf("expected type 'object', got %v", jsonSchema["type"])
	}
	if jsonSchema["description"] != "A simple schema" {
		t.Errorf("expected description, got %v", jsonSchema["description"])
	}
	if jsonSchema["additionalProperties"] != false {
		t.Error("expected additionalProperties false")
	}

	required := jsonSchema["required"].([]string)
	if !reflect.DeepEqual(required, []string{"name", "age"}) {
		t.Errorf("expected required [name age], got %v", required)
	}
}

// TestToJSONSchema_Nullable tests null-admitting types and enums
func TestToJSONSchema_Nullable(t *testing.T) {
	s, err := NewSchema[NullableListing]()
	if err != nil {
		t.Fatalf("NewSchema failed: %v", err)
	}

	jsonSchema, err := s.ToJSONSchema()
	if err != nil {
		t.Fatalf("ToJSONSchema failed: %v", err)
	}

	required := jsonSchema["required"].([]string)
	if len(required) != 6 {
		t.Errorf("expected every nullable field listed as required, got %v", required)
	}

	props := jsonSchema["properties"].(map[string]any)
	price := props["price"].(map[string]any)
	if !reflect.DeepEqual(price["type"], []string{"integer", "null"}) {
		t.Errorf("expected nullable integer type, got %v", price["type"])
	}

	tenure := props["tenure"].(map[string]any)
	if !reflect.DeepEqual(tenure["enum"], []any{"freehold", "leasehold", nil}) {
		t.Errorf("expected enum with null, got %v", tenure["enum"])
	}

	images := props["images"].(map[string]any)
	items := images["items"].(map[string]any)
	if items["type"] != "string" {
		t.Errorf("expected string items, got %v", items["type"])
	}
}

// TestToJSONSchema_NestedObject tests nested object generation
func TestToJSONSchema_NestedObject(t *testing.T) {
	s, _ := NewSchema[NestedStruct]()
	jsonSchema, _ := s.ToJSONSchema()

	props := jsonSchema["properties"].(map[string]any)
	address := props["address"].(map[string]any)
	if address["type"] != "object" {
		t.Errorf("expected object type, got %v", address["type"])
	}
	if _, ok := address["properties"].(map[string]any)["street"]; !ok {
		t.Error("expected nested street property")
	}
}

// TestToPromptDescription tests prompt generation
func TestToPromptDescription(t *testing.T) {
	s, _ := NewSchema[NullableListing](WithDescription("A property listing"))
	desc := s.ToPromptDescription()

	for _, want := range []string{
		"## Content Type\nA property listing",
		"## Fields to Extract",
		"- price (integer, null if unknown): Asking price",
		"- tenure (string, null if unknown) [one of: freehold, leasehold]",
	} {
		if !strings.Contains(desc, want) {
			t.Errorf("expected description to contain %q, got:\n%s", want, desc)
		}
	}
}

// TestToPromptDescription_NoDescription tests the default heading
func TestToPromptDescription_NoDescription(t *testing.T) {
	s, _ := NewSchema[SimpleStruct]()
	if desc := s.ToPromptDescription(); !strings.Contains(desc, "Extract the following structured data.") {
		t.Errorf("expected default description, got:\n%s", desc)
	}
}

// TestGetJSONName tests JSON tag name extraction
func TestGetJSONName(t *testing.T) {
	type TagStruct struct {
		Tagged    string `json:"custom_name"`
		Omitempty string `json:"with_omit,omitempty"`
		NoName    string `json:",omitempty"`
		Untagged  string
	}

	typ := reflect.TypeOf(TagStruct{})
	tests := []struct {
		field    string
		expected string
	}{
		{"Tagged", "custom_name"},
		{"Omitempty", "with_omit"},
		{"NoName", "NoName"},
		{"Untagged", "Untagged"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			sf, _ := typ.FieldByName(tt.field)
			if got := getJSONName(sf); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// TestParseValidators tests validator tag splitting
func TestParseValidators(t *testing.T) {
	if got := parseValidators(""); got != nil {
		t.Errorf("expected nil for empty tag, got %v", got)
	}
	got := parseValidators("omitempty,min=1,max=20")
	if !reflect.DeepEqual(got, []string{"omitempty", "min=1", "max=20"}) {
		t.Errorf("unexpected validators %v", got)
	}
}

// TestValidationError_Error tests error string formatting
func TestValidationError_Error(t *testing.T) {
	err := ValidationError{Field: "price", Message: "must be at least 0"}
	if err.Error() != "price: must be at least 0" {
		t.Errorf("unexpected error string %q", err.Error())
	}
}
