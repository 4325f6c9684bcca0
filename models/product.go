package models

import "time"

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "ACTIVE"
	ProductStatusInactive     ProductStatus = "INACTIVE"
	ProductStatusDiscontinued ProductStatus = "DISCONTINUED"
	ProductStatusDraft        ProductStatus = "DRAFT"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusDiscontinued, ProductStatusDraft:
		return true
	}
	return false
}

type Product struct {
	ID                   int64         `json:"id"`
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Price                float64       `json:"price"`
	Category             string        `json:"category"`
	Inventory            int           `json:"inventory"`
	ImagePath            string        `json:"image_path"`
	Status               ProductStatus `json:"status"`
	CarbonOffset         string        `json:"carbon_offset"`
	VendorName           string        `json:"vendor_name"`
	AdminNotes           string        `json:"admin_notes"`
	Featured             bool          `json:"featured"`
	WeightGrams          *float64      `json:"weight_grams,omitempty"`
	SustainabilityRating *int          `json:"sustainability_rating,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

type CreateProductRequest struct {
	Name                 string        `json:"name" binding:"required"`
	Description          string        `json:"description"`
	Price                float64       `json:"price" binding:"gte=0"`
	Category             string        `json:"category" binding:"required"`
	Inventory            int           `json:"inventory" binding:"gte=0"`
	ImagePath            string        `json:"image_path"`
	Status               ProductStatus `json:"status"`
	CarbonOffset         string        `json:"carbon_offset"`
	VendorName           string        `json:"vendor_name"`
	AdminNotes           string        `json:"admin_notes"`
	Featured             bool          `json:"featured"`
	WeightGrams          *float64      `json:"weight_grams"`
	SustainabilityRating *int          `json:"sustainability_rating"`
}

// UpdateProductRequest carries a partial update; nil fields are left untouched.
type UpdateProductRequest struct {
	Name                 *string        `json:"name"`
	Description          *string        `json:"description"`
	Price                *float64       `json:"price"`
	Category             *string        `json:"category"`
	Inventory            *int           `json:"inventory"`
	ImagePath            *string        `json:"image_path"`
	Status               *ProductStatus `json:"status"`
	CarbonOffset         *string        `json:"carbon_offset"`
	VendorName           *string        `json:"vendor_name"`
	AdminNotes           *string        `json:"admin_notes"`
	Featured             *bool          `json:"featured"`
	WeightGrams          *float64       `json:"weight_grams"`
	SustainabilityRating *int           `json:"sustainability_rating"`
}

// ProductFilter narrows List queries; zero values mean "no constraint".
type ProductFilter struct {
	Status            ProductStatus
	Category          string
	Featured          *bool
	MinPrice          *float64
	MaxPrice          *float64
	Search            string
	LowStockThreshold *int
	Sort              string // created_desc (default), price_asc, price_desc
}

type CatalogEvent struct {
	ProductID int64  `json:"product_id"`
	EventType string `json:"event_type"` // product_created, product_updated, product_deleted
}
