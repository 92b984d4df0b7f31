// Package validation checks submitted form values against explicit per-field rule
// lists. Each rule is a named predicate with the message shown when it fails.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Values is the read side of a submitted form; url.Values satisfies it
type Values interface {
	Get(key string) string
}

// Rule is a named predicate over one field's value. form gives access to the
// other fields for cross-field rules.
type Rule struct {
	Name    string
	Message string
	Check   func(value string, form Values) bool
}

// Field binds a form field name to the rules evaluated for it, in order
type Field struct {
	Name  string
	Rules []Rule
}

// Form is the ordered list of validated fields of one form
type Form []Field

// Validate runs every field's rules and stops at the first failure per field
func (f Form) Validate(values Values) Errors {
	errs := Errors{}
	for _, field := range f {
		value := values.Get(field.Name)
		for _, rule := range field.Rules {
			if !rule.Check(value, values) {
				errs.Add(field.Name, rule.Message)
				break
			}
		}
	}
	return errs
}

// Errors maps field names to their failure messages
type Errors map[string][]string

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Has(field string) bool {
	return len(e[field]) > 0
}

// First returns the first message recorded for field
func (e Errors) First(field string) string {
	if msgs := e[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e Errors) Empty() bool {
	return len(e) == 0
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msgs := range e {
		parts = append(parts, field+": "+strings.Join(msgs, "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func byTag(tag string) func(string) bool {
	return func(v string) bool {
		return validate.Var(v, tag) == nil
	}
}

// optional lets empty values through so presence stays the job of Required.
// check sees the value without surrounding whitespace, which is what handlers
// store.
func optional(check func(string) bool) func(string, Values) bool {
	return func(v string, _ Values) bool {
		v = strings.TrimSpace(v)
		if v == "" {
			return true
		}
		return check(v)
	}
}

// Required fails on empty or whitespace-only values
func Required() Rule {
	isSet := byTag("required")
	return Rule{
		Name:    "required",
		Message: "This field is required.",
		Check: func(v string, _ Values) bool {
			return isSet(strings.TrimSpace(v))
		},
	}
}

// Length bounds the trimmed value's length in characters
func Length(min, max int) Rule {
	return Rule{
		Name:    "length",
		Message: fmt.Sprintf("Field must be between %d and %d characters long.", min, max),
		Check:   optional(byTag(fmt.Sprintf("min=%d,max=%d", min, max))),
	}
}

func MinLength(min int) Rule {
	return Rule{
		Name:    "min_length",
		Message: fmt.Sprintf("Field must be at least %d characters long.", min),
		Check:   optional(byTag(fmt.Sprintf("min=%d", min))),
	}
}

func MaxLength(max int) Rule {
	return Rule{
		Name:    "max_length",
		Message: fmt.Sprintf("Field cannot be longer than %d characters.", max),
		Check:   optional(byTag(fmt.Sprintf("max=%d", max))),
	}
}

// Integer requires a base 10 integer
func Integer() Rule {
	return Rule{
		Name:    "integer",
		Message: "Not a valid integer value.",
		Check: optional(func(v string) bool {
			_, err := strconv.Atoi(strings.TrimSpace(v))
			return err == nil
		}),
	}
}

// IntRange requires an integer within [min, max]
func IntRange(min, max int) Rule {
	inRange := fmt.Sprintf("gte=%d,lte=%d", min, max)
	return Rule{
		Name:    "int_range",
		Message: fmt.Sprintf("Number must be between %d and %d.", min, max),
		Check: optional(func(v string) bool {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			return err == nil && validate.Var(n, inRange) == nil
		}),
	}
}

// Date requires a value in the given time layout
func Date(layout string) Rule {
	return Rule{
		Name:    "date",
		Message: "Not a valid date value.",
		Check:   optional(byTag("datetime=" + layout)),
	}
}

// OneOf requires one of the listed options
func OneOf(options ...string) Rule {
	return Rule{
		Name:    "one_of",
		Message: "Not a valid choice.",
		Check:   optional(byTag("oneof=" + strings.Join(options, " "))),
	}
}

// EqualTo requires the value to match another field exactly
func EqualTo(other, message string) Rule {
	return Rule{
		Name:    "equal_to",
		Message: message,
		Check: func(v string, form Values) bool {
			return v == form.Get(other)
		},
	}
}

// Func wraps a custom predicate. Empty values pass.
func Func(name, message string, check func(string) bool) Rule {
	return Rule{Name: name, Message: message, Check: optional(check)}
}
