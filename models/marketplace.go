package models

import "time"

type ItemType string

const (
	ItemTypeTreePlanting ItemType = "TREE_PLANTING"
	ItemTypeCarbonCredit ItemType = "CARBON_CREDIT"
	ItemTypeDonation     ItemType = "DONATION"
	ItemTypeEcoProduct   ItemType = "ECO_PRODUCT"
)

// MarketplaceItem is the customer-facing read view of one catalog product.
// Every field is derived from the source product; the row holds no state of
// its own and lives exactly as long as the product does.
type MarketplaceItem struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Price        float64   `json:"price"`
	CarbonOffset string    `json:"carbon_offset"`
	ImageURL     string    `json:"image_url"`
	Stock        *int      `json:"stock"`
	Seller       string    `json:"seller"`
	ItemType     ItemType  `json:"item_type"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
