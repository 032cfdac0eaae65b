package crawler

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// DefaultSelectors returns the locators for Trulia rental pages
func DefaultSelectors() Selectors {
	return Selectors{
		Index: IndexSelectors{
			ListingCard: "div[data-testid='home-card-rent']",
			ListingLink: "a",
			NextPage:    "a[aria-label='Next Page']",
		},
		Detail: DetailSelectors{
			FloorPlanTable: "table[data-testid='floor-plan-group']",
			Row:            "tr",
			Unit:           "div[color='highlight']",
			Sqft:           "td.FloorPlanTable__FloorPlanFloorSpaceCell-sc-1ghu3y7-5",
			Features:       "td.FloorPlanTable__FloorPlanFeaturesCell-sc-1ghu3y7-4",
			Price:          "td.FloorPlanTable__FloorPlanSMCell-sc-1ghu3y7-8",
			PriceIndex:     1,
			Name:           "span[data-testid='home-details-summary-headline']",
			CityState:      "span[data-testid='home-details-summary-city-state']",
			Description:    "div[data-testid='home-description-text-description-text']",
			Amenities:      "li.FeatureList__FeatureListItem-iipbki-0",
		},
	}
}

// LoadSelectors reads a YAML file and overlays it on the defaults, so a file
// only needs the locators that changed.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &sel); err != nil {
		return sel, fmt.Errorf("decode selectors %s: %w", path, err)
	}
	if err := sel.Validate(); err != nil {
		return sel, fmt.Errorf("selectors %s: %w", path, err)
	}
	return sel, nil
}

// Validate rejects selector sets that cannot drive a crawl
func (s Selectors) Validate() error {
	required := map[string]string{
		"index.listing_card":      s.Index.ListingCard,
		"index.next_page":         s.Index.NextPage,
		"detail.floor_plan_table": s.Detail.FloorPlanTable,
		"detail.row":              s.Detail.Row,
		"detail.unit":             s.Detail.Unit,
		"detail.sqft":             s.Detail.Sqft,
		"detail.features":         s.Detail.Features,
		"detail.price":            s.Detail.Price,
		"detail.name":             s.Detail.Name,
		"detail.city_state":       s.Detail.CityState,
		"detail.description":      s.Detail.Description,
	}
	for key, value := range required {
		if value == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
	}
	if s.Detail.PriceIndex < 0 {
		return fmt.Errorf("detail.price_index must not be negative")
	}
	return nil
}
