package records

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Field string

const (
	FieldMobileNumber Field = "mobile_number"
	FieldOrderID      Field = "order_id"
	FieldCustomerName Field = "customer_name"
	FieldOrderStatus  Field = "order_status"
	FieldDeliveryDate Field = "delivery_date"
	FieldLastUpdate   Field = "last_update"
)

func knownField(f Field) bool {
	switch f {
	case FieldMobileNumber, FieldOrderID, FieldCustomerName, FieldOrderStatus, FieldDeliveryDate, FieldLastUpdate:
		return true
	}
	return false
}

func isDateField(f Field) bool {
	return f == FieldDeliveryDate || f == FieldLastUpdate
}

// ColumnRule maps a header to a field by case-insensitive substring match.
// A header matches when it contains any AnyOf word (if set) and every AllOf word (if set).
type ColumnRule struct {
	Field Field    `yaml:"field"`
	AnyOf []string `yaml:"any_of"`
	AllOf []string `yaml:"all_of"`
}

func (r ColumnRule) matches(header string) bool {
	if len(r.AnyOf) == 0 && len(r.AllOf) == 0 {
		return false
	}
	if len(r.AnyOf) > 0 {
		hit := false
		for _, word := range r.AnyOf {
			if strings.Contains(header, strings.ToLower(word)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	for _, word := range r.AllOf {
		if !strings.Contains(header, strings.ToLower(word)) {
			return false
		}
	}
	return true
}

// ColumnMap is an ordered rule table; for every header the first matching rule wins.
type ColumnMap struct {
	Rules []ColumnRule `yaml:"rules"`
}

func DefaultColumnMap() ColumnMap {
	return ColumnMap{Rules: []ColumnRule{
		{Field: FieldMobileNumber, AnyOf: []string{"mobile", "phone"}},
		{Field: FieldOrderID, AllOf: []string{"order", "id"}},
		{Field: FieldOrderID, AllOf: []string{"order", "number"}},
		{Field: FieldCustomerName, AnyOf: []string{"customer", "name"}},
		{Field: FieldOrderStatus, AnyOf: []string{"status"}},
		{Field: FieldDeliveryDate, AllOf: []string{"delivery", "date"}},
		{Field: FieldLastUpdate, AllOf: []string{"last", "update"}},
	}}
}

// LoadColumnMap reads a YAML rule table. An empty path yields the default table.
func LoadColumnMap(path string) (ColumnMap, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultColumnMap(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return ColumnMap{}, fmt.Errorf("read column map: %w", err)
	}
	var m ColumnMap
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return ColumnMap{}, fmt.Errorf("decode column map: %w", err)
	}
	if len(m.Rules) == 0 {
		return ColumnMap{}, fmt.Errorf("column map %s has no rules", path)
	}
	for i, rule := range m.Rules {
		if !knownField(rule.Field) {
			return ColumnMap{}, fmt.Errorf("column map rule %d: unknown field %q", i, rule.Field)
		}
	}
	return m, nil
}

// Resolve returns the column index of every field found in the header row.
// When several columns map to one field the leftmost wins.
func (m ColumnMap) Resolve(headers []string) map[Field]int {
	out := make(map[Field]int, len(m.Rules))
	for idx, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if h == "" {
			continue
		}
		for _, rule := range m.Rules {
			if !rule.matches(h) {
				continue
			}
			if _, taken := out[rule.Field]; !taken {
				out[rule.Field] = idx
			}
			break
		}
	}
	return out
}
