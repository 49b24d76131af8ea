package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
)

type CategoryWriter interface {
	Upsert(ctx context.Context, c domain.Category) (*domain.Category, error)
}

type ProductWriter interface {
	Upsert(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type productSeed struct {
	ID          string
	Name        string
	Description string
	Price       string
	Stock       int
	Category    string
	ImageURL    string
	AgeRange    string
}

var categories = []string{
	"Plush Toys",
	"Costumes",
	"Collectibles",
	"Home & Kitchen",
	"Books",
}

// Product ids are fixed so re-running the seed updates rows in place.
var products = []productSeed{
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b01",
		Name:        "Classic Mickey Plush",
		Description: "A soft, huggable Mickey with his famous red shorts and yellow shoes.",
		Price:       "24.99",
		Stock:       25,
		Category:    "Plush Toys",
		ImageURL:    "https://images.pexels.com/photos/163696/toy-car-mickey-mouse-163696.jpeg",
		AgeRange:    "0+",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b02",
		Name:        "Minnie Bow Plush",
		Description: "Minnie in her polka-dot dress with an oversized bow.",
		Price:       "22.50",
		Stock:       4,
		Category:    "Plush Toys",
		ImageURL:    "https://images.pexels.com/photos/3933025/pexels-photo-3933025.jpeg",
		AgeRange:    "0+",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b03",
		Name:        "Sorcerer's Apprentice Hat",
		Description: "Blue cone hat with moon and stars, one size fits most apprentices.",
		Price:       "18.00",
		Stock:       12,
		Category:    "Costumes",
		ImageURL:    "https://images.pexels.com/photos/5885897/pexels-photo-5885897.jpeg",
		AgeRange:    "3+",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b04",
		Name:        "Princess Gown",
		Description: "Sparkling gown with a twirl-ready skirt.",
		Price:       "39.99",
		Stock:       0,
		Category:    "Costumes",
		ImageURL:    "https://images.pexels.com/photos/6192124/pexels-photo-6192124.jpeg",
		AgeRange:    "4-10",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b05",
		Name:        "Steamboat Willie Figurine",
		Description: "Hand-painted collectible figure of the 1928 classic.",
		Price:       "59.00",
		Stock:       3,
		Category:    "Collectibles",
		ImageURL:    "https://images.pexels.com/photos/7978039/pexels-photo-7978039.jpeg",
		AgeRange:    "14+",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b06",
		Name:        "Castle Snow Globe",
		Description: "Shake it and watch the fireworks glitter over the castle.",
		Price:       "34.95",
		Stock:       9,
		Category:    "Collectibles",
		ImageURL:    "https://images.pexels.com/photos/3651579/pexels-photo-3651579.jpeg",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b07",
		Name:        "Mickey Waffle Maker",
		Description: "Makes four ear-shaped waffles at a time.",
		Price:       "49.99",
		Stock:       15,
		Category:    "Home & Kitchen",
		ImageURL:    "https://images.pexels.com/photos/2280545/pexels-photo-2280545.jpeg",
	},
	{
		ID:          "6f1c2a4e-0b7d-4c1e-9a51-1d2f3e4a5b08",
		Name:        "Magic Storybook Collection",
		Description: "Five bedtime stories in a keepsake box.",
		Price:       "29.99",
		Stock:       20,
		Category:    "Books",
		ImageURL:    "https://images.pexels.com/photos/256431/pexels-photo-256431.jpeg",
		AgeRange:    "3-8",
	},
}

// Apply inserts a themed demo catalog for manual testing. It is idempotent:
// categories upsert by name and products by fixed id.
func Apply(ctx context.Context, categoryRepo CategoryWriter, productRepo ProductWriter) error {
	ids := make(map[string]string, len(categories))
	for _, name := range categories {
		c, err := categoryRepo.Upsert(ctx, domain.Category{Name: name})
		if err != nil {
			return fmt.Errorf("upsert category %s: %w", name, err)
		}
		ids[name] = c.ID
	}

	for _, s := range products {
		p, err := s.product(ids)
		if err != nil {
			return err
		}
		if _, err := productRepo.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", s.Name, err)
		}
	}
	return nil
}

func (s productSeed) product(categoryIDs map[string]string) (domain.Product, error) {
	price, err := domain.ParseMoney(s.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("seed product %s: %w", s.Name, err)
	}
	p := domain.Product{
		ID:            s.ID,
		Name:          s.Name,
		Price:         price,
		StockQuantity: s.Stock,
		CategoryID:    categoryIDs[s.Category],
		ImageURL:      s.ImageURL,
	}
	if s.Description != "" {
		desc := s.Description
		p.Description = &desc
	}
	if s.AgeRange != "" {
		age := s.AgeRange
		p.AgeRange = &age
	}
	return p, nil
}
