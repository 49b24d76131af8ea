package httpserver

import (
	"time"

	"storefront/internal/domain"
	"storefront/internal/notify"
	"storefront/internal/storefront/cart"
	"storefront/internal/storefront/catalog"
)

type productResponse struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   *string      `json:"description"`
	Price         domain.Money `json:"price"`
	StockQuantity int          `json:"stockQuantity"`
	CategoryID    *string      `json:"categoryId"`
	ImageURL      string       `json:"imageUrl"`
	AgeRange      *string      `json:"ageRange"`
	LowStock      bool         `json:"lowStock"`
	SoldOut       bool         `json:"soldOut"`
	CreatedAt     time.Time    `json:"createdAt"`
}

func toProductResponse(p domain.Product) productResponse {
	var categoryID *string
	if p.CategoryID != "" {
		id := p.CategoryID
		categoryID = &id
	}
	return productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CategoryID:    categoryID,
		ImageURL:      p.ImageURL,
		AgeRange:      p.AgeRange,
		LowStock:      p.LowStock(),
		SoldOut:       p.SoldOut(),
		CreatedAt:     p.CreatedAt,
	}
}

func toProductResponses(products []domain.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	return out
}

type cartLineResponse struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	LineTotal domain.Money    `json:"lineTotal"`
	Product   productResponse `json:"product"`
	CreatedAt time.Time       `json:"createdAt"`
}

type cartResponse struct {
	Items      []cartLineResponse `json:"items"`
	TotalItems int                `json:"totalItems"`
	TotalPrice domain.Money       `json:"totalPrice"`
	Loading    bool               `json:"loading"`
}

func toCartResponse(st cart.State) cartResponse {
	items := make([]cartLineResponse, 0, len(st.Items))
	for _, line := range st.Items {
		items = append(items, cartLineResponse{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			LineTotal: line.LineTotal(),
			Product:   toProductResponse(line.Product),
			CreatedAt: line.CreatedAt,
		})
	}
	return cartResponse{
		Items:      items,
		TotalItems: st.TotalItems,
		TotalPrice: st.TotalPrice,
		Loading:    st.Loading,
	}
}

type catalogResponse struct {
	Categories         []domain.Category `json:"categories"`
	SelectedCategoryID *string           `json:"selectedCategoryId"`
	Search             string            `json:"search"`
	Products           []productResponse `json:"products"`
	Heading            string            `json:"heading"`
	Summary            string            `json:"summary"`
	EmptyTitle         string            `json:"emptyTitle,omitempty"`
	EmptyHint          string            `json:"emptyHint,omitempty"`
	Loading            bool              `json:"loading"`
}

func toCatalogResponse(st catalog.ViewState) catalogResponse {
	categories := st.Categories
	if categories == nil {
		categories = []domain.Category{}
	}
	return catalogResponse{
		Categories:         categories,
		SelectedCategoryID: st.SelectedCategoryID,
		Search:             st.Search,
		Products:           toProductResponses(st.Products),
		Heading:            st.Heading,
		Summary:            st.Summary,
		EmptyTitle:         st.EmptyTitle,
		EmptyHint:          st.EmptyHint,
		Loading:            st.Loading,
	}
}

type authResponse struct {
	User      *domain.User `json:"user"`
	Token     string       `json:"token,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

type notificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}
