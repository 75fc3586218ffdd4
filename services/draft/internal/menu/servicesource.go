package menu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/aquamarinepk/aqm"
)

// ServiceSource reads the catalog over the menu service's REST API.
type ServiceSource struct {
	client *aqm.ServiceClient
}

func NewServiceSource(menuURL string) *ServiceSource {
	return &ServiceSource{client: aqm.NewServiceClient(menuURL)}
}

func (s *ServiceSource) Items(ctx context.Context, restaurantID string) ([]Item, error) {
	path := fmt.Sprintf("/restaurants/%s/menu/items", url.PathEscape(restaurantID))
	resp, err := s.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch menu items: %w", err)
	}

	var items []Item
	if err := decodeSuccessResponse(resp, &items); err != nil {
		return nil, fmt.Errorf("cannot decode menu items: %w", err)
	}
	return items, nil
}

func (s *ServiceSource) Categories(ctx context.Context, restaurantID string) ([]Category, error) {
	path := fmt.Sprintf("/restaurants/%s/menu/categories", url.PathEscape(restaurantID))
	resp, err := s.client.Request(ctx, "GET", path, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch menu categories: %w", err)
	}

	var categories []Category
	if err := decodeSuccessResponse(resp, &categories); err != nil {
		return nil, fmt.Errorf("cannot decode menu categories: %w", err)
	}
	return categories, nil
}

func decodeSuccessResponse(resp *aqm.SuccessResponse, target interface{}) error {
	if resp == nil {
		return fmt.Errorf("nil success response")
	}

	raw, err := json.Marshal(resp.Data)
	if err != nil {
		return err
	}

	return json.Unmarshal(raw, target)
}
