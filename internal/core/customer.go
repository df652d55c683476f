package core

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Customer is one ration-card entry in the register.
//
// ID and CreatedAt are assigned by the Store when the record is added and never
// change afterwards. PageNumber is an opaque token: "007" and "7" are different
// pages.
type Customer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PageNumber  string `json:"pageNumber"`
	FamilyCount int    `json:"familyCount"`
	SecretPin   string `json:"secretPin"`
	CreatedAt   int64  `json:"createdAt"`
}

// Candidate holds the user-editable fields of a Customer, as submitted by a
// form, the CLI or the JSON API.
type Candidate struct {
	Name        string `json:"name"`
	PageNumber  string `json:"pageNumber"`
	FamilyCount int    `json:"familyCount"`
	SecretPin   string `json:"secretPin"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name        *string `json:"name,omitempty"`
	PageNumber  *string `json:"pageNumber,omitempty"`
	FamilyCount *int    `json:"familyCount,omitempty"`
	SecretPin   *string `json:"secretPin,omitempty"`
}

// PatchFrom returns a Patch that replaces every mutable field with c's values.
func PatchFrom(c Candidate) Patch {
	return Patch{
		Name:        &c.Name,
		PageNumber:  &c.PageNumber,
		FamilyCount: &c.FamilyCount,
		SecretPin:   &c.SecretPin,
	}
}

// NormalizeFamilyCount coerces anything that is not a positive integer to 1.
func NormalizeFamilyCount(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// ParseFamilyCount parses user input for the household size. Unparseable or
// non-positive input yields 1, the same as an empty number field.
func ParseFamilyCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 1
	}
	return NormalizeFamilyCount(n)
}

// Validate checks the required fields of a candidate. It does not reject a bad
// family count: that is coerced instead.
func (c Candidate) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.PageNumber) == "" {
		missing = append(missing, "pageNumber")
	}
	if strings.TrimSpace(c.SecretPin) == "" {
		missing = append(missing, "secretPin")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Normalized returns a copy with the family count coerced.
func (c Candidate) Normalized() Candidate {
	c.FamilyCount = NormalizeFamilyCount(c.FamilyCount)
	return c
}

// Validate checks the fields a patch would set.
func (p Patch) Validate() error {
	var missing []string
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		missing = append(missing, "name")
	}
	if p.PageNumber != nil && strings.TrimSpace(*p.PageNumber) == "" {
		missing = append(missing, "pageNumber")
	}
	if p.SecretPin != nil && strings.TrimSpace(*p.SecretPin) == "" {
		missing = append(missing, "secretPin")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// apply writes the supplied fields of p onto c.
func (p Patch) apply(c Customer) Customer {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.PageNumber != nil {
		c.PageNumber = *p.PageNumber
	}
	if p.FamilyCount != nil {
		c.FamilyCount = NormalizeFamilyCount(*p.FamilyCount)
	}
	if p.SecretPin != nil {
		c.SecretPin = *p.SecretPin
	}
	return c
}

// UnmarshalJSON decodes a record leniently. Imported files are not validated
// field by field: a wrong-typed value is coerced instead of failing the whole
// import. Only a value that is not a JSON object is an error.
func (c *Customer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}

	*c = Customer{
		ID:          looseString(raw["id"]),
		Name:        looseString(raw["name"]),
		PageNumber:  looseString(raw["pageNumber"]),
		FamilyCount: NormalizeFamilyCount(int(looseInt(raw["familyCount"]))),
		SecretPin:   looseString(raw["secretPin"]),
		CreatedAt:   looseInt(raw["createdAt"]),
	}
	return nil
}

// looseString reads a JSON string, or the literal text of a number.
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// looseInt reads a JSON number or numeric string, truncating fractions.
// Integers are parsed exactly; out-of-range values decode as 0.
func looseInt(raw json.RawMessage) int64 {
	if len(raw) == 0 {
		return 0
	}
	var text string
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		text = n.String()
	} else if err := json.Unmarshal(raw, &text); err != nil {
		return 0
	}
	text = strings.TrimSpace(text)

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0
	}
	return int64(f)
}
