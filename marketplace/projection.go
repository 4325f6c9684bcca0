package marketplace

import (
	"strings"

	"marketplace-admin-svc/models"
)

// Project derives the marketplace view of a catalog product. It is the only
// place mirror field values come from; the mirror row carries no state that
// cannot be recomputed by calling this again.
func Project(p models.Product) models.MarketplaceItem {
	stock := p.Inventory
	return models.MarketplaceItem{
		ProductID:    p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Category:     p.Category,
		Price:        p.Price,
		CarbonOffset: p.CarbonOffset,
		ImageURL:     p.ImagePath,
		Stock:        &stock,
		Seller:       p.VendorName,
		ItemType:     itemTypeForCategory(p.Category),
		IsActive:     p.Status == models.ProductStatusActive && p.Inventory > 0,
	}
}

func itemTypeForCategory(category string) models.ItemType {
	switch lower := strings.ToLower(category); {
	case lower == "tree-planting" || lower == "tree planting":
		return models.ItemTypeTreePlanting
	case lower == "carbon-credits" || lower == "carbon credits":
		return models.ItemTypeCarbonCredit
	case strings.Contains(lower, "donation"):
		return models.ItemTypeDonation
	default:
		return models.ItemTypeEcoProduct
	}
}
