package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Amount is a decimal value that the back office serialises either as a JSON
// number or as a string ("12.50", "12,50"). Unparseable values read as zero.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(f)
	return nil
}

func (a Amount) Float() float64 {
	return float64(a)
}

func (a Amount) String() string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}

func ParseAmount(s string) Amount {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Amount(f)
}

// AmountPtr is a convenience for optional coordinates and prices.
func AmountPtr(f float64) *Amount {
	a := Amount(f)
	return &a
}
