package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/go-playground/validator/v10"
)

const isoDate = "2006-01-02"

type CustomValidator struct {
	validator *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterValidation("iso_date", validateISODate)
	v.RegisterValidation("lang_code", validateLangCode)
	v.RegisterValidation("booking_status", validateBookingStatus)

	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Describe flattens validation failures into "field: tag" pairs that fit on
// one console line.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// MissingTravelerFields lists the extended fields the excursion requires that
// the traveler has not filled in yet.
func MissingTravelerFields(excursionTitle string, t models.Traveler) []string {
	var missing []string
	for _, field := range models.ClassifyExcursion(excursionTitle).RequiredFields() {
		if strings.TrimSpace(t.Field(field)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(isoDate, fl.Field().String())
	return err == nil
}

func validateLangCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if len(code) < 2 || len(code) > 3 {
		return false
	}
	for _, r := range code {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	return models.BookingStatus(fl.Field().String()).Valid()
}
