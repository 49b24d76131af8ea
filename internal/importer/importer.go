package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, category domain.Category) (*domain.Category, error)
}

// CSVImporter reads catalog CSV files and inserts/updates products. The
// expected header is
//
//	id,name,description,price,stock_quantity,category,image_url,age_range
//
// where id, description, category, image_url and age_range may be empty.
// Categories are referenced by name and created on first use.
type CSVImporter struct {
	reader       *csv.Reader
	productRepo  ProductWriter
	categoryRepo CategoryWriter
	categoryIDs  map[string]string
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:       csvr,
		productRepo:  products,
		categoryRepo: categories,
		categoryIDs:  make(map[string]string),
	}
}

type csvRow struct {
	Line        int
	ID          string
	Name        string
	Description string
	Price       string
	Stock       string
	Category    string
	ImageURL    string
	AgeRange    string
}

// Run parses CSV rows and upserts one product per row. It stops at the
// first invalid row and reports how many rows were saved before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	if _, ok := index["name"]; !ok {
		return 0, errors.New("missing required column \"name\"")
	}
	if _, ok := index["price"]; !ok {
		return 0, errors.New("missing required column \"price\"")
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row := parseRow(record, index)
		if row == nil {
			continue
		}
		row.Line = line
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	p, err := row.product()
	if err != nil {
		return fmt.Errorf("line %d: %w", row.Line, err)
	}
	if row.Category != "" {
		id, err := i.categoryID(ctx, row.Category)
		if err != nil {
			return fmt.Errorf("line %d: %w", row.Line, err)
		}
		p.CategoryID = id
	}
	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("line %d: upsert product %q: %w", row.Line, row.Name, err)
	}
	return nil
}

func (i *CSVImporter) categoryID(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)
	if id, ok := i.categoryIDs[key]; ok {
		return id, nil
	}
	if i.categoryRepo == nil {
		return "", fmt.Errorf("category %q given but no category writer configured", name)
	}
	c, err := i.categoryRepo.Upsert(ctx, domain.Category{Name: name})
	if err != nil {
		return "", fmt.Errorf("upsert category %q: %w", name, err)
	}
	i.categoryIDs[key] = c.ID
	return c.ID, nil
}

func (r *csvRow) product() (domain.Product, error) {
	if r.Name == "" {
		return domain.Product{}, errors.New("name is required")
	}
	if r.ID != "" {
		if err := uuid.Validate(r.ID); err != nil {
			return domain.Product{}, fmt.Errorf("invalid id %q for %q", r.ID, r.Name)
		}
	}
	price, err := domain.ParseMoney(r.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("invalid price %q for %q: %w", r.Price, r.Name, err)
	}
	if price.IsNegative() {
		return domain.Product{}, fmt.Errorf("negative price for %q", r.Name)
	}
	stock := 0
	if r.Stock != "" {
		stock, err = strconv.Atoi(r.Stock)
		if err != nil || stock < 0 {
			return domain.Product{}, fmt.Errorf("invalid stock_quantity %q for %q", r.Stock, r.Name)
		}
	}

	return domain.Product{
		ID:            r.ID,
		Name:          r.Name,
		Description:   optional(r.Description),
		Price:         price,
		StockQuantity: stock,
		ImageURL:      r.ImageURL,
		AgeRange:      optional(r.AgeRange),
	}, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

// parseRow returns nil for blank lines.
func parseRow(record []string, index map[string]int) *csvRow {
	row := &csvRow{
		ID:          pick(record, index, "id"),
		Name:        pick(record, index, "name"),
		Description: pick(record, index, "description"),
		Price:       pick(record, index, "price"),
		Stock:       pick(record, index, "stock_quantity"),
		Category:    pick(record, index, "category"),
		ImageURL:    pick(record, index, "image_url"),
		AgeRange:    pick(record, index, "age_range"),
	}
	if *row == (csvRow{}) {
		return nil
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
