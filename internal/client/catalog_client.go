package client

import (
	"context"
	"fmt"
	"net/http"

	models "github.com/chrisdamba/excursiondesk/internal"
	"github.com/chrisdamba/excursiondesk/internal/ports"
)

// CatalogClient reads the collaborator data a booking is assembled from:
// the family party, pickup options and the pricing quote.
type CatalogClient struct {
	rest
}

func NewCatalogClient(transport ports.Transport) *CatalogClient {
	return &CatalogClient{rest{transport: transport}}
}

func (c *CatalogClient) GetFamily(ctx context.Context, id int) (*models.Family, error) {
	var family models.Family
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("families/%d/", id), nil, &family); err != nil {
		return nil, fmt.Errorf("get family %d: %w", id, err)
	}
	return &family, nil
}

func (c *CatalogClient) Pickups(ctx context.Context, req models.QuoteRequest) (*models.PickupOptions, error) {
	var options models.PickupOptions
	target := "pickups/v2/?" + req.PickupValues().Encode()
	if err := c.call(ctx, http.MethodGet, target, nil, &options); err != nil {
		return nil, fmt.Errorf("pickups: %w", err)
	}
	return &options, nil
}

func (c *CatalogClient) Quote(ctx context.Context, req models.QuoteRequest) (*models.Quote, error) {
	var quote models.Quote
	target := "pricing/quote/?" + req.QuoteValues().Encode()
	if err := c.call(ctx, http.MethodGet, target, nil, &quote); err != nil {
		return nil, fmt.Errorf("pricing quote: %w", err)
	}
	return &quote, nil
}
