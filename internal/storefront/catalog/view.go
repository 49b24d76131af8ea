package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/notify"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// User-facing messages.
const (
	MsgProductsLoadFailed   = "Failed to load products"
	MsgCategoriesLoadFailed = "Failed to load categories"
)

const (
	allProductsHeading = "All Products"
	emptyTitle         = "No products found"
	emptyHint          = "Try adjusting your search or browse different categories to find the magical items you're looking for!"
)

type ProductSource interface {
	List(ctx context.Context) ([]domain.Product, error)
}

type CategorySource interface {
	List(ctx context.Context) ([]domain.Category, error)
}

// ViewState is what a storefront page renders.
type ViewState struct {
	Categories         []domain.Category `json:"categories"`
	SelectedCategoryID *string           `json:"selectedCategoryId"`
	Search             string            `json:"search"`
	Products           []domain.Product  `json:"products"`
	Heading            string            `json:"heading"`
	Summary            string            `json:"summary"`
	EmptyTitle         string            `json:"emptyTitle,omitempty"`
	EmptyHint          string            `json:"emptyHint,omitempty"`
	Loading            bool              `json:"loading"`
}

// View keeps the catalog a session is browsing together with its category
// selection and search text. The filtered list is recomputed whenever any of
// the three changes.
type View struct {
	products   ProductSource
	categories CategorySource
	notifier   notify.Notifier
	logger     *zap.Logger

	mu            sync.RWMutex
	allProducts   []domain.Product
	allCategories []domain.Category
	selected      *string
	search        string
	filtered      []domain.Product
	loading       bool
	loaded        bool
}

func NewView(products ProductSource, categories CategorySource, notifier notify.Notifier, log *zap.Logger) *View {
	return &View{
		products:   products,
		categories: categories,
		notifier:   notifier,
		logger:     logger.OrNop(log),
		filtered:   []domain.Product{},
	}
}

// Refresh loads categories and products concurrently. A source that fails
// keeps its previous data and raises an error notification; the other is
// still applied.
func (v *View) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	var (
		g          errgroup.Group
		categories []domain.Category
		products   []domain.Product
		catErr     error
		prodErr    error
	)
	g.Go(func() error {
		categories, catErr = v.categories.List(ctx)
		return catErr
	})
	g.Go(func() error {
		products, prodErr = v.products.List(ctx)
		return prodErr
	})
	err := g.Wait()

	v.mu.Lock()
	if catErr == nil {
		v.allCategories = categories
	}
	if prodErr == nil {
		v.allProducts = products
		v.loaded = true
		v.recompute()
	}
	v.loading = false
	v.mu.Unlock()

	if catErr != nil {
		v.logger.Error("catalog_categories_fetch_failed", zap.Error(catErr))
		notify.Error(ctx, v.notifier, MsgCategoriesLoadFailed)
	}
	if prodErr != nil {
		v.logger.Error("catalog_products_fetch_failed", zap.Error(prodErr))
		notify.Error(ctx, v.notifier, MsgProductsLoadFailed)
	}
	if err != nil {
		return fmt.Errorf("refresh catalog: %w", err)
	}
	return nil
}

// Loaded reports whether products have been loaded at least once.
func (v *View) Loaded() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loaded
}

// SelectCategory narrows the list to one category; nil selects all.
func (v *View) SelectCategory(categoryID *string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if categoryID == nil || strings.TrimSpace(*categoryID) == "" {
		v.selected = nil
	} else {
		id := strings.TrimSpace(*categoryID)
		v.selected = &id
	}
	v.recompute()
}

func (v *View) Search(query string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = query
	v.recompute()
}

// Products returns the filtered list.
func (v *View) Products() []domain.Product {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]domain.Product, len(v.filtered))
	copy(out, v.filtered)
	return out
}

// Product finds a loaded product by id regardless of the current filter.
func (v *View) Product(id string) (domain.Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, p := range v.allProducts {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Heading names what is being shown: the search, the category, or everything.
func (v *View) Heading() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.heading()
}

// Summary is the result count line.
func (v *View) Summary() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return summary(len(v.filtered))
}

func (v *View) State() ViewState {
	v.mu.RLock()
	defer v.mu.RUnlock()

	state := ViewState{
		Categories: append([]domain.Category{}, v.allCategories...),
		Search:     v.search,
		Products:   append([]domain.Product{}, v.filtered...),
		Heading:    v.heading(),
		Summary:    summary(len(v.filtered)),
		Loading:    v.loading,
	}
	if v.selected != nil {
		id := *v.selected
		state.SelectedCategoryID = &id
	}
	if len(v.filtered) == 0 && !v.loading {
		state.EmptyTitle = emptyTitle
		state.EmptyHint = emptyHint
	}
	return state
}

func (v *View) recompute() {
	v.filtered = Filter(v.allProducts, v.selected, v.search)
}

func (v *View) heading() string {
	if v.search != "" {
		return `Search results for "` + v.search + `"`
	}
	if v.selected != nil {
		for _, c := range v.allCategories {
			if c.ID == *v.selected {
				return c.Name
			}
		}
		return ""
	}
	return allProductsHeading
}

func summary(n int) string {
	return fmt.Sprintf("%d magical items found", n)
}
