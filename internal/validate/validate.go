// Package validate provides schema-driven field validation for records.
//
// Each table carries a declarative rule set. Validation is pure: it never
// mutates the record, collects every error instead of short-circuiting,
// and treats unknown tables as always valid.
package validate

import (
	"fmt"
	"regexp"

	"github.com/tablewise/poscore/internal/models"
)

// Kind identifies a field constraint kind.
type Kind string

const (
	KindRequired Kind = "required"
	KindString   Kind = "string"
	KindNumber   Kind = "number"
	KindBoolean  Kind = "boolean"
	KindEmail    Kind = "email"
	KindPhone    Kind = "phone"
	KindPattern  Kind = "pattern"
)

var (
	emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{5,19}$`)
)

// Rule is one field-level constraint.
type Rule struct {
	Field   string
	Kind    Kind
	Min     float64
	Max     float64
	Pattern *regexp.Regexp
}

// Result is the outcome of validating one record.
type Result struct {
	Valid  bool
	Errors []string
}

// Gate validates records against per-table rule sets.
type Gate struct {
	rules map[string][]Rule
}

// NewGate creates a Gate with the default rule sets for the fixed schema.
func NewGate() *Gate {
	return &Gate{rules: defaultRules()}
}

// NewGateWithRules creates a Gate with caller-supplied rule sets.
func NewGateWithRules(rules map[string][]Rule) *Gate {
	return &Gate{rules: rules}
}

// Validate checks one record against the table's rule set. Tables without
// a rule set validate as always valid.
func (g *Gate) Validate(table string, rec models.Record) Result {
	rules, ok := g.rules[table]
	if !ok {
		return Result{Valid: true}
	}

	var errs []string
	for _, rule := range rules {
		if msg := applyRule(rule, rec); msg != "" {
			errs = append(errs, msg)
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// applyRule checks a single rule, returning "" on success.
// Absent fields only fail the required kind; the typed kinds are
// constraints on the value when present.
func applyRule(rule Rule, rec models.Record) string {
	value, present := rec[rule.Field]

	if rule.Kind == KindRequired {
		if !present || value == nil {
			return fmt.Sprintf("%s is required", rule.Field)
		}
		if s, ok := value.(string); ok && s == "" {
			return fmt.Sprintf("%s is required", rule.Field)
		}
		return ""
	}

	if !present || value == nil {
		return ""
	}

	switch rule.Kind {
	case KindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Sprintf("%s must be a string", rule.Field)
		}
		if float64(len(s)) < rule.Min {
			return fmt.Sprintf("%s must be at least %d characters", rule.Field, int(rule.Min))
		}
		if rule.Max > 0 && float64(len(s)) > rule.Max {
			return fmt.Sprintf("%s must be at most %d characters", rule.Field, int(rule.Max))
		}

	case KindNumber:
		n, ok := asFloat(value)
		if !ok {
			return fmt.Sprintf("%s must be a number", rule.Field)
		}
		if n < rule.Min {
			return fmt.Sprintf("%s must be at least %v", rule.Field, rule.Min)
		}
		if rule.Max > rule.Min && n > rule.Max {
			return fmt.Sprintf("%s must be at most %v", rule.Field, rule.Max)
		}

	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("%s must be a boolean", rule.Field)
		}

	case KindEmail:
		s, ok := value.(string)
		if !ok || (s != "" && !emailRegex.MatchString(s)) {
			return fmt.Sprintf("%s must be a valid email address", rule.Field)
		}

	case KindPhone:
		s, ok := value.(string)
		if !ok || (s != "" && !phoneRegex.MatchString(s)) {
			return fmt.Sprintf("%s must be a valid phone number", rule.Field)
		}

	case KindPattern:
		s, ok := value.(string)
		if !ok || rule.Pattern == nil || !rule.Pattern.MatchString(s) {
			return fmt.Sprintf("%s has an invalid format", rule.Field)
		}
	}

	return ""
}

// asFloat normalizes the numeric types a JSON round trip can produce.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// defaultRules is the rule set for the fixed retail/restaurant schema.
func defaultRules() map[string][]Rule {
	return map[string][]Rule{
		models.TableMenuItems: {
			{Field: "name", Kind: KindRequired},
			{Field: "name", Kind: KindString, Min: 1, Max: 100},
			{Field: "price", Kind: KindRequired},
			{Field: "price", Kind: KindNumber, Min: 0, Max: 100000},
			{Field: "category", Kind: KindString, Max: 50},
			{Field: "available", Kind: KindBoolean},
		},
		models.TableOrders: {
			{Field: "items", Kind: KindRequired},
			{Field: "total", Kind: KindNumber, Min: 0, Max: 1000000},
			{Field: "status", Kind: KindString, Max: 30},
			{Field: "customerName", Kind: KindString, Max: 100},
			{Field: "tableNumber", Kind: KindNumber, Min: 0, Max: 500},
		},
		models.TableCategories: {
			{Field: "name", Kind: KindRequired},
			{Field: "name", Kind: KindString, Min: 1, Max: 50},
		},
		models.TableTables: {
			{Field: "number", Kind: KindRequired},
			{Field: "number", Kind: KindNumber, Min: 1, Max: 500},
			{Field: "status", Kind: KindString, Max: 30},
			{Field: "capacity", Kind: KindNumber, Min: 1, Max: 50},
		},
		models.TableReservations: {
			{Field: "customerName", Kind: KindRequired},
			{Field: "customerName", Kind: KindString, Min: 1, Max: 100},
			{Field: "phone", Kind: KindPhone},
			{Field: "partySize", Kind: KindNumber, Min: 1, Max: 100},
			{Field: "time", Kind: KindRequired},
		},
		models.TableCustomers: {
			{Field: "name", Kind: KindRequired},
			{Field: "name", Kind: KindString, Min: 1, Max: 100},
			{Field: "email", Kind: KindEmail},
			{Field: "phone", Kind: KindPhone},
		},
		models.TableInventory: {
			{Field: "name", Kind: KindRequired},
			{Field: "name", Kind: KindString, Min: 1, Max: 100},
			{Field: "quantity", Kind: KindRequired},
			{Field: "quantity", Kind: KindNumber, Min: 0, Max: 1000000000},
			{Field: "unit", Kind: KindString, Max: 20},
		},
	}
}
