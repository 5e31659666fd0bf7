package models

import (
	"net/url"
	"strconv"
)

// PickupPoint is one pickup option for an excursion at a hotel.
type PickupPoint struct {
	ID      int     `json:"id"`
	Point   string  `json:"point,omitempty"`
	Name    string  `json:"name,omitempty"`
	Time    string  `json:"time,omitempty"`
	Lat     *Amount `json:"lat,omitempty"`
	Lng     *Amount `json:"lng,omitempty"`
	Address string  `json:"address,omitempty"`
}

func (p PickupPoint) Label() string {
	if p.Point != "" {
		return p.Point
	}
	return p.Name
}

type PickupOptions struct {
	Results []PickupPoint `json:"results"`
}

func (o *PickupOptions) First() *PickupPoint {
	if o == nil || len(o.Results) == 0 {
		return nil
	}
	return &o.Results[0]
}

type quotePrices struct {
	AdultPrice *Amount `json:"adult_price"`
	ChildPrice *Amount `json:"child_price"`
	PriceAdult *Amount `json:"price_adult"`
	PriceChild *Amount `json:"price_child"`
	Source     string  `json:"source"`
}

// Quote is the raw pricing answer. The back office has shipped several
// shapes over time; Normalize folds them into one.
type Quote struct {
	Detail     string       `json:"detail,omitempty"`
	Currency   string       `json:"currency,omitempty"`
	Gross      *Amount      `json:"gross,omitempty"`
	GrossTotal *Amount      `json:"gross_total,omitempty"`
	Total      *Amount      `json:"total,omitempty"`
	PriceAdult *Amount      `json:"price_adult,omitempty"`
	PriceChild *Amount      `json:"price_child,omitempty"`
	AdultPrice *Amount      `json:"adult_price,omitempty"`
	ChildPrice *Amount      `json:"child_price,omitempty"`
	Source     string       `json:"source,omitempty"`
	Meta       *quotePrices `json:"meta,omitempty"`
	Details    *quotePrices `json:"details,omitempty"`
}

type NormalizedQuote struct {
	OK       bool
	Error    string
	Currency string
	Gross    Amount
	PerAdult *Amount
	PerChild *Amount
	Source   string
}

func firstAmount(values ...*Amount) *Amount {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func (q *Quote) Normalize(adults, children int) NormalizedQuote {
	if q == nil {
		return NormalizedQuote{}
	}
	if q.Detail != "" {
		return NormalizedQuote{Error: q.Detail}
	}

	n := NormalizedQuote{Currency: q.Currency}
	if n.Currency == "" {
		n.Currency = "EUR"
	}

	var meta, details quotePrices
	if q.Meta != nil {
		meta = *q.Meta
	}
	if q.Details != nil {
		details = *q.Details
	}
	n.PerAdult = firstAmount(meta.AdultPrice, q.PriceAdult, q.AdultPrice, details.PriceAdult)
	n.PerChild = firstAmount(meta.ChildPrice, q.PriceChild, q.ChildPrice, details.PriceChild)

	gross := firstAmount(q.Gross, q.GrossTotal, q.Total)
	switch {
	case gross != nil:
		n.Gross = *gross
	case n.PerAdult != nil || n.PerChild != nil:
		var a, c Amount
		if n.PerAdult != nil {
			a = *n.PerAdult
			c = *n.PerAdult
		}
		if n.PerChild != nil {
			c = *n.PerChild
		}
		n.Gross = a*Amount(adults) + c*Amount(children)
	}

	n.Source = meta.Source
	if n.Source == "" {
		n.Source = q.Source
	}
	n.OK = n.Gross > 0 || n.PerAdult != nil || n.PerChild != nil
	return n
}

// QuoteRequest carries the watched selection the pickup and pricing lookups
// depend on.
type QuoteRequest struct {
	ExcursionID int
	Date        string
	FamilyID    int
	HotelID     *int
	HotelName   string
	Travelers   []int
	Adults      int
	Children    int
	Infants     int
	Lang        string
}

func (r QuoteRequest) PickupValues() url.Values {
	v := url.Values{}
	v.Set("excursion_id", strconv.Itoa(r.ExcursionID))
	v.Set("hotel_id", optionalInt(r.HotelID))
	v.Set("hotel_name", r.HotelName)
	v.Set("date", r.Date)
	return v
}

func (r QuoteRequest) QuoteValues() url.Values {
	v := r.PickupValues()
	v.Set("adults", strconv.Itoa(r.Adults))
	v.Set("children", strconv.Itoa(r.Children))
	v.Set("infants", strconv.Itoa(r.Infants))
	lang := r.Lang
	if lang == "" {
		lang = "ru"
	}
	v.Set("lang", lang)
	return v
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
