package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-admin-svc/models"
)

func TestProject_ItemType(t *testing.T) {
	tests := []struct {
		category string
		want     models.ItemType
	}{
		{"tree-planting", models.ItemTypeTreePlanting},
		{"Tree Planting", models.ItemTypeTreePlanting},
		{"carbon-credits", models.ItemTypeCarbonCredit},
		{"Carbon Credits", models.ItemTypeCarbonCredit},
		{"monthly-donation", models.ItemTypeDonation},
		{"DONATION drive", models.ItemTypeDonation},
		{"eco_product", models.ItemTypeEcoProduct},
		{"reusable bottles", models.ItemTypeEcoProduct},
		{"", models.ItemTypeEcoProduct},
	}

	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			item := Project(models.Product{Category: tt.category})
			assert.Equal(t, tt.want, item.ItemType)
		})
	}
}

func TestProject_IsActive(t *testing.T) {
	tests := []struct {
		name      string
		status    models.ProductStatus
		inventory int
		want      bool
	}{
		{"active with stock", models.ProductStatusActive, 5, true},
		{"active without stock", models.ProductStatusActive, 0, false},
		{"inactive with stock", models.ProductStatusInactive, 5, false},
		{"discontinued with stock", models.ProductStatusDiscontinued, 5, false},
		{"draft with stock", models.ProductStatusDraft, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Project(models.Product{Status: tt.status, Inventory: tt.inventory})
			assert.Equal(t, tt.want, item.IsActive)
		})
	}
}

func TestProject_Fields(t *testing.T) {
	p := models.Product{
		ID:           42,
		Name:         "Oak Sapling",
		Description:  "One oak tree, planted for you",
		Price:        10.00,
		Category:     "tree planting",
		Inventory:    7,
		ImagePath:    "/img/oak.png",
		Status:       models.ProductStatusActive,
		CarbonOffset: "20kg CO2",
		VendorName:   "GreenRoots",
	}

	item := Project(p)

	assert.Equal(t, int64(42), item.ProductID)
	assert.Equal(t, "Oak Sapling", item.Name)
	assert.Equal(t, "One oak tree, planted for you", item.Description)
	assert.Equal(t, 10.00, item.Price)
	assert.Equal(t, "tree planting", item.Category)
	assert.Equal(t, "20kg CO2", item.CarbonOffset)
	assert.Equal(t, "/img/oak.png", item.ImageURL)
	assert.Equal(t, "GreenRoots", item.Seller)
	assert.Equal(t, models.ItemTypeTreePlanting, item.ItemType)
	assert.True(t, item.IsActive)
	require.NotNil(t, item.Stock)
	assert.Equal(t, 7, *item.Stock)
}

// Project is a pure function, so projecting the same product twice must
// yield the same mirror row. This is what makes re-running a resync a no-op.
func TestProject_Deterministic(t *testing.T) {
	p := models.Product{
		ID:        1,
		Name:      "Bamboo Toothbrush",
		Category:  "eco_product",
		Price:     3.50,
		Inventory: 100,
		Status:    models.ProductStatusActive,
	}

	first := Project(p)
	second := Project(p)

	assert.Equal(t, first.ItemType, second.ItemType)
	assert.Equal(t, first.IsActive, second.IsActive)
	assert.Equal(t, *first.Stock, *second.Stock)
}
