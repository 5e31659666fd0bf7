package models

import (
	"fmt"
	"strings"
)

// Traveler belongs to a family party. Bookings reference travelers by id only.
type Traveler struct {
	ID          int    `json:"id"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	MiddleName  string `json:"middle_name,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	IsChild     bool   `json:"is_child"`
	DOB         string `json:"dob,omitempty" validate:"omitempty,iso_date"`
	Nationality string `json:"nationality,omitempty"`
	Passport    string `json:"passport,omitempty"`
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=M F"`
	DocType     string `json:"doc_type,omitempty" validate:"omitempty,oneof=passport dni"`
	DocExpiry   string `json:"doc_expiry,omitempty" validate:"omitempty,iso_date"`
}

func (t Traveler) DisplayName() string {
	if t.FullName != "" {
		return t.FullName
	}
	name := strings.TrimSpace(strings.Join([]string{t.FirstName, t.LastName}, " "))
	if name == "" {
		return fmt.Sprintf("#%d", t.ID)
	}
	return name
}

// Field returns the value of an extended field by its wire name.
func (t Traveler) Field(name string) string {
	switch name {
	case "dob":
		return t.DOB
	case "nationality":
		return t.Nationality
	case "passport":
		return t.Passport
	case "gender":
		return t.Gender
	case "doc_type":
		return t.DocType
	case "doc_expiry":
		return t.DocExpiry
	}
	return ""
}

// SetField assigns an extended field by its wire name.
func (t *Traveler) SetField(name, value string) error {
	switch name {
	case "dob":
		t.DOB = value
	case "nationality":
		t.Nationality = value
	case "passport":
		t.Passport = value
	case "gender":
		t.Gender = value
	case "doc_type":
		t.DocType = value
	case "doc_expiry":
		t.DocExpiry = value
	default:
		return fmt.Errorf("unknown traveler field %q", name)
	}
	return nil
}

type Family struct {
	ID         int        `json:"id"`
	HotelID    *int       `json:"hotel_id,omitempty"`
	HotelName  string     `json:"hotel_name,omitempty"`
	RegionName string     `json:"region_name,omitempty"`
	Party      []Traveler `json:"party"`
}

// Occupancy counts adults and children among the selected travelers.
func (f Family) Occupancy(selected []int) (adults, children int) {
	set := make(map[int]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}
	for _, t := range f.Party {
		if _, ok := set[t.ID]; !ok {
			continue
		}
		if t.IsChild {
			children++
		} else {
			adults++
		}
	}
	return adults, children
}

type ExcursionKind string

const (
	KindRegular   ExcursionKind = "regular"
	KindTangier   ExcursionKind = "tangier"
	KindGranada   ExcursionKind = "granada"
	KindGibraltar ExcursionKind = "gibraltar"
	KindSeville   ExcursionKind = "seville"
)

var requiredTravelerFields = map[ExcursionKind][]string{
	KindGranada:   {"passport", "nationality"},
	KindGibraltar: {"nationality"},
	KindTangier:   {"gender", "doc_type", "doc_expiry", "passport", "nationality", "dob"},
	KindSeville:   {"passport", "nationality", "dob"},
}

// ClassifyExcursion picks the special-fields variant from the excursion title.
// Order matters: a title mentioning several places resolves to the first hit.
func ClassifyExcursion(title string) ExcursionKind {
	s := strings.ToLower(title)
	switch {
	case strings.Contains(s, "танжер") || strings.Contains(s, "tang"):
		return KindTangier
	case strings.Contains(s, "гранад"):
		return KindGranada
	case strings.Contains(s, "гибрал") || strings.Contains(s, "gibr"):
		return KindGibraltar
	case strings.Contains(s, "севиль") || strings.Contains(s, "sevil"):
		return KindSeville
	}
	return KindRegular
}

// RequiredFields lists the traveler extended fields the kind needs.
func (k ExcursionKind) RequiredFields() []string {
	return append([]string(nil), requiredTravelerFields[k]...)
}

// NormalizeGender maps the many spellings staff type into M, F or "".
func NormalizeGender(value string) string {
	s := strings.ToUpper(strings.TrimSpace(value))
	s = strings.Replace(s, ".", "", 1)
	switch s {
	case "M", "MALE", "М", "МУЖ", "MR":
		return "M"
	case "F", "FEMALE", "Ж", "ЖЕН", "MRS", "MS", "MISS":
		return "F"
	}
	return ""
}

// NormalizeDocType maps document spellings into passport, dni or "".
func NormalizeDocType(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.Replace(s, ".", "", 1)
	switch s {
	case "passport", "pass", "паспорт", "загранпаспорт":
		return "passport"
	case "dni", "id", "id card", "ид", "удостоверение", "нацпаспорт":
		return "dni"
	}
	return ""
}

// NormalizeTravelerField applies the field-specific normalisation, if any.
func NormalizeTravelerField(field, value string) string {
	switch field {
	case "gender":
		return NormalizeGender(value)
	case "doc_type":
		return NormalizeDocType(value)
	}
	return value
}
