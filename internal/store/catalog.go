package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dmfarrell/trolley/internal/catalog"
	"github.com/dmfarrell/trolley/internal/model"
)

type CatalogStore struct {
	db *sql.DB
}

func NewCatalogStore(db *sql.DB) *CatalogStore {
	return &CatalogStore{db: db}
}

const productCols = `id, name, category, price, unit, popularity, archived, archived_by, archived_at, created_at, updated_at`

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var archived int
	var archivedBy sql.NullString
	var archivedAt sql.NullTime

	err := scanner.Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &p.Unit, &p.Popularity,
		&archived, &archivedBy, &archivedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Archived = archived != 0
	if archivedBy.Valid {
		p.ArchivedBy = archivedBy.String
	}
	if archivedAt.Valid {
		p.ArchivedAt = &archivedAt.Time
	}
	return &p, nil
}

// GetByName looks up a live product by exact normalized name. Archived
// entries are invisible to lookups.
func (s *CatalogStore) GetByName(name string) (*model.Product, error) {
	row := s.db.QueryRow(
		`SELECT `+productCols+` FROM products WHERE id = ? AND archived = 0`,
		catalog.Normalize(name),
	)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Ensure returns the product for a name, creating it when missing. The id is
// a pure function of the normalized name, so a second add of the same name
// can never create a second entry.
func (s *CatalogStore) Ensure(name, category string, price float64, unit string) (*model.Product, error) {
	id := catalog.Normalize(name)
	if id == "" {
		return nil, fmt.Errorf("ensure product: empty name")
	}

	existing, err := s.GetByName(name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if category == "" {
		category = "Other"
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO products (id, name, category, price, unit) VALUES (?, ?, ?, ?, ?)`,
		id, catalog.Display(name), category, price, unit,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return s.GetByName(name)
}

// BumpPopularity increments a product's popularity counter.
func (s *CatalogStore) BumpPopularity(name string) error {
	_, err := s.db.Exec(
		`UPDATE products SET popularity = popularity + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), catalog.Normalize(name),
	)
	if err != nil {
		return fmt.Errorf("bump popularity: %w", err)
	}
	return nil
}

// UpdatePrice sets a product's price and, when the value actually changed,
// appends an immutable price-history record in the same transaction.
// Returns the updated product, or nil if no such live product exists.
func (s *CatalogStore) UpdatePrice(name string, newPrice float64, actor string) (*model.Product, error) {
	p, err := s.GetByName(name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	if p.Price == newPrice {
		return p, nil
	}

	err = inTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`UPDATE products SET price = ?, updated_at = ? WHERE id = ?`,
			newPrice, time.Now().UTC(), p.ID,
		); err != nil {
			return fmt.Errorf("update price: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO price_history (product_id, old_price, new_price, actor) VALUES (?, ?, ?, ?)`,
			p.ID, p.Price, newPrice, actor,
		); err != nil {
			return fmt.Errorf("insert price history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByName(name)
}

// UpdateCategory sets a product's category.
func (s *CatalogStore) UpdateCategory(name, category string) (*model.Product, error) {
	_, err := s.db.Exec(
		`UPDATE products SET category = ?, updated_at = ? WHERE id = ? AND archived = 0`,
		category, time.Now().UTC(), catalog.Normalize(name),
	)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return s.GetByName(name)
}

// PriceHistory returns a product's price changes, newest first.
func (s *CatalogStore) PriceHistory(name string) ([]model.PriceChange, error) {
	rows, err := s.db.Query(
		`SELECT id, product_id, old_price, new_price, actor, created_at
		 FROM price_history WHERE product_id = ? ORDER BY created_at DESC, id DESC`,
		catalog.Normalize(name),
	)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	defer rows.Close()

	var changes []model.PriceChange
	for rows.Next() {
		var c model.PriceChange
		if err := rows.Scan(&c.ID, &c.ProductID, &c.OldPrice, &c.NewPrice, &c.Actor, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan price change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// Archive soft-deletes a product with audit fields.
func (s *CatalogStore) Archive(name, actor string) error {
	_, err := s.db.Exec(
		`UPDATE products SET archived = 1, archived_by = ?, archived_at = ?, updated_at = ? WHERE id = ?`,
		actor, time.Now().UTC(), time.Now().UTC(), catalog.Normalize(name),
	)
	if err != nil {
		return fmt.Errorf("archive product: %w", err)
	}
	return nil
}

// Unarchive restores an archived product.
func (s *CatalogStore) Unarchive(name string) error {
	_, err := s.db.Exec(
		`UPDATE products SET archived = 0, archived_by = NULL, archived_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), catalog.Normalize(name),
	)
	if err != nil {
		return fmt.Errorf("unarchive product: %w", err)
	}
	return nil
}

// List returns live products, most popular first.
func (s *CatalogStore) List() ([]model.Product, error) {
	rows, err := s.db.Query(
		`SELECT ` + productCols + ` FROM products WHERE archived = 0 ORDER BY popularity DESC, name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Search finds live products whose normalized name contains the term, most
// popular first. Terms shorter than two characters return nothing.
func (s *CatalogStore) Search(term string) ([]model.Product, error) {
	term = catalog.Normalize(term)
	if len([]rune(term)) < 2 {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT `+productCols+` FROM products
		 WHERE archived = 0 AND id LIKE '%' || ? || '%'
		 ORDER BY popularity DESC, name ASC LIMIT 20`,
		term,
	)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// DefaultCategories returns the seeded category names in their default
// display sequence.
func (s *CatalogStore) DefaultCategories() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM categories ORDER BY sort_order ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
