package validation

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperengineering/crm/internal/types"
)

// Field length limits.
const (
	MaxBusinessNameLength = 200
	MaxContactNameLength  = 200
	MaxPhoneLength        = 40
	MaxCityLength         = 120
	MaxNotesLength        = 5000
	MaxSiteTypeNameLength = 100
	MaxDescriptionLength  = 500
	MaxProfileNameLength  = 200
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateULID returns an error if the value is not a valid ULID format.
// ULIDs are 26 characters using Crockford Base32 (excludes I, L, O, U).
func ValidateULID(field, value string) *ValidationError {
	if len(value) != 26 {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid ULID (26 characters)",
		}
	}

	const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"
	for _, r := range value {
		upper := strings.ToUpper(string(r))
		if !strings.Contains(crockfordBase32, upper) {
			return &ValidationError{
				Field:   field,
				Message: "must be a valid ULID (invalid character)",
			}
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidateRange returns an error if the value is outside [min, max].
func ValidateRange(field string, value, min, max float64) *ValidationError {
	if value < min || value > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be between %.1f and %.1f", min, max),
		}
	}
	return nil
}

// ValidateMoney returns an error if the amount is negative, NaN or infinite.
func ValidateMoney(field string, value float64) *ValidationError {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return &ValidationError{
			Field:   field,
			Message: "must be a non-negative amount",
		}
	}
	return nil
}

// ValidateDate returns an error if the value is not a YYYY-MM-DD calendar date.
func ValidateDate(field, value string) *ValidationError {
	if _, err := time.Parse(types.ContactDateLayout, value); err != nil {
		return &ValidationError{
			Field:   field,
			Message: "must be a date in YYYY-MM-DD format",
		}
	}
	return nil
}

// ValidateHexColor returns an error if the value is not a #rrggbb color.
// Empty values are accepted.
func ValidateHexColor(field, value string) *ValidationError {
	if value == "" || hexColorPattern.MatchString(value) {
		return nil
	}
	return &ValidationError{
		Field:   field,
		Message: "must be a hex color like #1a2b3c",
	}
}

// ValidateStatus returns an error if the value is not a pipeline status.
func ValidateStatus(field string, status types.ClientStatus) *ValidationError {
	allowed := make([]string, len(types.Statuses))
	for i, s := range types.Statuses {
		allowed[i] = string(s)
	}
	return ValidateEnum(field, string(status), allowed)
}

// validateText runs the common checks for a free-text field.
func validateText(c *Collector, field, value string, max int) {
	c.Add(ValidateUTF8(field, value))
	c.Add(ValidateNoNullBytes(field, value))
	c.Add(ValidateMaxLength(field, value, max))
}

// ValidateClientInput validates a client creation payload.
func ValidateClientInput(in types.ClientInput) []ValidationError {
	var c Collector

	c.Add(ValidateRequired("business_name", in.BusinessName))
	validateText(&c, "business_name", in.BusinessName, MaxBusinessNameLength)
	validateText(&c, "contact_name", in.ContactName, MaxContactNameLength)
	c.Add(ValidateRequired("phone", in.Phone))
	validateText(&c, "phone", in.Phone, MaxPhoneLength)
	c.Add(ValidateRequired("city", in.City))
	validateText(&c, "city", in.City, MaxCityLength)
	c.Add(ValidateDate("contact_date", in.ContactDate))
	validateText(&c, "notes", in.Notes, MaxNotesLength)

	if in.Status != "" {
		c.Add(ValidateStatus("status", in.Status))
	}
	if in.SiteTypeID != "" {
		c.Add(ValidateULID("site_type_id", in.SiteTypeID))
	}

	return c.Errors()
}

// ValidateClientPatch validates the fields present in a partial client update.
func ValidateClientPatch(p types.ClientPatch) []ValidationError {
	var c Collector

	if p.BusinessName != nil {
		c.Add(ValidateRequired("business_name", *p.BusinessName))
		validateText(&c, "business_name", *p.BusinessName, MaxBusinessNameLength)
	}
	if p.ContactName != nil {
		validateText(&c, "contact_name", *p.ContactName, MaxContactNameLength)
	}
	if p.Phone != nil {
		c.Add(ValidateRequired("phone", *p.Phone))
		validateText(&c, "phone", *p.Phone, MaxPhoneLength)
	}
	if p.City != nil {
		c.Add(ValidateRequired("city", *p.City))
		validateText(&c, "city", *p.City, MaxCityLength)
	}
	if p.ContactDate != nil {
		c.Add(ValidateDate("contact_date", *p.ContactDate))
	}
	if p.Status != nil {
		c.Add(ValidateStatus("status", *p.Status))
	}
	if p.SiteTypeID != nil && *p.SiteTypeID != "" {
		c.Add(ValidateULID("site_type_id", *p.SiteTypeID))
	}
	if p.Notes != nil {
		validateText(&c, "notes", *p.Notes, MaxNotesLength)
	}

	return c.Errors()
}

// ValidateProjectTerms validates the supplied commercial terms.
func ValidateProjectTerms(t *types.ProjectTerms) []ValidationError {
	if t == nil {
		return nil
	}
	var c Collector
	if t.Value != nil {
		c.Add(ValidateMoney("value", *t.Value))
	}
	if t.ProjectTimeline != nil && *t.ProjectTimeline < 1 {
		c.Add(&ValidationError{Field: "project_timeline", Message: "must be at least 1 week"})
	}
	if t.ProgressPercentage != nil {
		c.Add(ValidateRange("progress_percentage", float64(*t.ProgressPercentage), 0, 100))
	}
	return c.Errors()
}

// ValidateSiteTypeInput validates a site type creation payload.
func ValidateSiteTypeInput(in types.SiteTypeInput) []ValidationError {
	var c Collector
	c.Add(ValidateRequired("name", in.Name))
	validateText(&c, "name", in.Name, MaxSiteTypeNameLength)
	validateText(&c, "description", in.Description, MaxDescriptionLength)
	c.Add(ValidateMoney("base_value", in.BaseValue))
	return c.Errors()
}

// ValidateSiteTypePatch validates the fields present in a partial site type update.
func ValidateSiteTypePatch(p types.SiteTypePatch) []ValidationError {
	var c Collector
	if p.Name != nil {
		c.Add(ValidateRequired("name", *p.Name))
		validateText(&c, "name", *p.Name, MaxSiteTypeNameLength)
	}
	if p.Description != nil {
		validateText(&c, "description", *p.Description, MaxDescriptionLength)
	}
	if p.BaseValue != nil {
		c.Add(ValidateMoney("base_value", *p.BaseValue))
	}
	return c.Errors()
}

// ValidateProfilePatch validates a branding update.
func ValidateProfilePatch(p types.ProfilePatch) []ValidationError {
	var c Collector
	if p.Name != nil {
		validateText(&c, "name", *p.Name, MaxProfileNameLength)
	}
	if p.CompanyName != nil {
		validateText(&c, "company_name", *p.CompanyName, MaxBusinessNameLength)
	}
	if p.CompanyNameColor != nil {
		c.Add(ValidateHexColor("company_name_color", *p.CompanyNameColor))
	}
	if p.PrimaryColor != nil {
		c.Add(ValidateHexColor("primary_color", *p.PrimaryColor))
	}
	return c.Errors()
}

// ParseProjectTerms converts form-style string terms into ProjectTerms.
// Empty strings leave the corresponding term unset.
func ParseProjectTerms(value, timeline string) (*types.ProjectTerms, []ValidationError) {
	var c Collector
	terms := &types.ProjectTerms{}

	if v := strings.TrimSpace(value); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.Add(&ValidationError{Field: "value", Message: "must be a number"})
		} else {
			terms.Value = &f
		}
	}
	if v := strings.TrimSpace(timeline); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.Add(&ValidationError{Field: "project_timeline", Message: "must be a whole number of weeks"})
		} else {
			terms.ProjectTimeline = &n
		}
	}

	if c.HasErrors() {
		return nil, c.Errors()
	}
	return terms, ValidateProjectTerms(terms)
}
