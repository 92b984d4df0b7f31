package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"travelcms/internal/model"
	"travelcms/internal/service"
	v "travelcms/pkg/validation"
)

const dateLayout = "2006-01-02"

var (
	loginForm = v.Form{
		{Name: "username", Rules: []v.Rule{v.Required(), v.Length(4, 50)}},
		{Name: "password", Rules: []v.Rule{v.Required()}},
	}

	registerForm = v.Form{
		{Name: "username", Rules: []v.Rule{v.Required(), v.Length(4, 50)}},
		{Name: "password", Rules: []v.Rule{v.Required(), v.MinLength(6)}},
		{Name: "confirm_password", Rules: []v.Rule{v.Required(), v.EqualTo("password", "Passwords must match")}},
		{Name: "role", Rules: []v.Rule{v.Required(), v.Integer()}},
	}

	placeForm = v.Form{
		{Name: "name", Rules: []v.Rule{v.Required(), v.MaxLength(100)}},
		{Name: "description", Rules: []v.Rule{v.Required()}},
		{Name: "category", Rules: []v.Rule{v.MaxLength(50)}},
		{Name: "rating", Rules: []v.Rule{v.Func("rating", "Rating must be a number between 0 and 5.", validRating)}},
		{Name: "geographical_location", Rules: []v.Rule{v.MaxLength(100)}},
	}

	routeForm = v.Form{
		{Name: "name", Rules: []v.Rule{v.Required(), v.MaxLength(100)}},
		{Name: "duration", Rules: []v.Rule{v.Required(), v.Func("duration", "Duration must look like 2:30 or 2:30:00.", validDuration)}},
		{Name: "difficulty", Rules: []v.Rule{v.Required(), v.Integer(), v.IntRange(model.MinDifficulty, model.MaxDifficulty)}},
		{Name: "age_restrictions", Rules: []v.Rule{v.Integer(), v.IntRange(0, 99)}},
		{Name: "place_id", Rules: []v.Rule{v.Integer(), v.IntRange(1, 1<<31-1)}},
	}

	commentForm = v.Form{
		{Name: "message", Rules: []v.Rule{v.Required(), v.MaxLength(500)}},
	}

	logFilterForm = v.Form{
		{Name: "user_id", Rules: []v.Rule{v.Integer(), v.IntRange(1, 1<<31-1)}},
		{Name: "category", Rules: []v.Rule{v.OneOf(categoryNames()...)}},
		{Name: "start_date", Rules: []v.Rule{v.Date(dateLayout)}},
		{Name: "end_date", Rules: []v.Rule{v.Date(dateLayout)}},
	}

	changeRoleForm = v.Form{
		{Name: "user_id", Rules: []v.Rule{v.Required(), v.Integer(), v.IntRange(1, 1<<31-1)}},
		{Name: "role_id", Rules: []v.Rule{v.Required(), v.Integer(), v.IntRange(1, 1<<31-1)}},
	}
)

func categoryNames() []string {
	names := make([]string, len(model.AllLogCategories))
	for i, c := range model.AllLogCategories {
		names[i] = string(c)
	}
	return names
}

func validRating(s string) bool {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	return err == nil && !d.LessThan(model.MinRating) && !d.GreaterThan(model.MaxRating)
}

func validDuration(s string) bool {
	_, err := service.ParseDuration(s)
	return err == nil
}

// The helpers below read fields that already passed validation

func formUint(values v.Values, field string) uint {
	n, _ := strconv.ParseUint(strings.TrimSpace(values.Get(field)), 10, 64)
	return uint(n)
}

func formInt(values v.Values, field string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(values.Get(field)))
	return n
}

// optionalInt returns nil for an empty field
func optionalInt(values v.Values, field string) *int {
	if strings.TrimSpace(values.Get(field)) == "" {
		return nil
	}
	n := formInt(values, field)
	return &n
}

func optionalUint(values v.Values, field string) *uint {
	if strings.TrimSpace(values.Get(field)) == "" {
		return nil
	}
	n := formUint(values, field)
	return &n
}

func optionalDate(values v.Values, field string) *time.Time {
	raw := strings.TrimSpace(values.Get(field))
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

func formRating(values v.Values) decimal.Decimal {
	raw := strings.TrimSpace(values.Get("rating"))
	if raw == "" {
		return decimal.Zero
	}
	d, _ := decimal.NewFromString(raw)
	return d
}
