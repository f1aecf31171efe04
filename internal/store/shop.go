package store

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/dmfarrell/trolley/internal/catalog"
	"github.com/dmfarrell/trolley/internal/model"
)

// ShopStore manages physical stores and per-user learned layouts.
type ShopStore struct {
	db *sql.DB
}

func NewShopStore(db *sql.DB) *ShopStore {
	return &ShopStore{db: db}
}

// shopSearchLimit bounds search results. A policy knob, not a contract.
const shopSearchLimit = 20

// pastelPalette gives each shop a stable UI identity: the same name always
// hashes to the same color.
var pastelPalette = []string{
	"#FFB3BA", "#FFDFBA", "#FFFFBA", "#BAFFC9", "#BAE1FF",
	"#E3BAFF", "#FFBAE1", "#C9C9FF", "#B5EAD7", "#FFDAC1",
}

// PastelColor returns the deterministic pastel color for a shop name.
func PastelColor(name string) string {
	h := fnv.New32a()
	h.Write([]byte(catalog.Normalize(name)))
	return pastelPalette[h.Sum32()%uint32(len(pastelPalette))]
}

const shopCols = `id, name, color, created_by, deleted_at, created_at`

func scanShop(scanner interface{ Scan(...any) error }) (*model.Shop, error) {
	var sh model.Shop
	var deleted sql.NullTime

	err := scanner.Scan(&sh.ID, &sh.Name, &sh.Color, &sh.CreatedBy, &deleted, &sh.CreatedAt)
	if err != nil {
		return nil, err
	}
	if deleted.Valid {
		sh.DeletedAt = &deleted.Time
	}
	return &sh, nil
}

// Create allocates a globally visible shop and seeds the creator's layout
// with the default category order in the same transaction.
func (s *ShopStore) Create(name string, createdBy int64, defaultOrder []string) (*model.Shop, error) {
	var id int64
	err := inTx(s.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(
			`INSERT INTO shops (name, color, created_by) VALUES (?, ?, ?)`,
			name, PastelColor(name), createdBy,
		)
		if err != nil {
			return fmt.Errorf("insert shop: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO shop_layouts (shop_id, user_id, category_order, last_used_at, visit_count) VALUES (?, ?, ?, ?, 0)`,
			id, createdBy, encodeOrder(defaultOrder), time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("seed layout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// GetByID returns a shop, or nil when it does not exist or was soft-deleted.
func (s *ShopStore) GetByID(id int64) (*model.Shop, error) {
	row := s.db.QueryRow(`SELECT `+shopCols+` FROM shops WHERE id = ? AND deleted_at IS NULL`, id)
	sh, err := scanShop(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shop: %w", err)
	}
	return sh, nil
}

// Search finds live shops by case-insensitive substring. Terms shorter than
// two characters return nothing.
func (s *ShopStore) Search(term string) ([]model.Shop, error) {
	term = catalog.Normalize(term)
	if len([]rune(term)) < 2 {
		return nil, nil
	}

	rows, err := s.db.Query(
		`SELECT `+shopCols+` FROM shops
		 WHERE deleted_at IS NULL AND LOWER(name) LIKE '%' || ? || '%'
		 ORDER BY name ASC LIMIT ?`,
		term, shopSearchLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("search shops: %w", err)
	}
	defer rows.Close()

	var shops []model.Shop
	for rows.Next() {
		sh, err := scanShop(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shop: %w", err)
		}
		shops = append(shops, *sh)
	}
	return shops, rows.Err()
}

// SoftDelete hides a shop from lookups and searches.
func (s *ShopStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(
		`UPDATE shops SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("soft delete shop: %w", err)
	}
	return nil
}

const layoutCols = `id, shop_id, user_id, category_order, last_used_at, visit_count`

func scanLayout(scanner interface{ Scan(...any) error }) (*model.ShopLayout, error) {
	var l model.ShopLayout
	var order sql.NullString

	err := scanner.Scan(&l.ID, &l.ShopID, &l.UserID, &order, &l.LastUsedAt, &l.VisitCount)
	if err != nil {
		return nil, err
	}
	l.CategoryOrder = decodeOrder(order)
	return &l, nil
}

// GetLayout returns one user's layout for a shop, or nil if the user has
// never visited it.
func (s *ShopStore) GetLayout(shopID, userID int64) (*model.ShopLayout, error) {
	row := s.db.QueryRow(
		`SELECT `+layoutCols+` FROM shop_layouts WHERE shop_id = ? AND user_id = ?`,
		shopID, userID,
	)
	l, err := scanLayout(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get layout: %w", err)
	}
	return l, nil
}

// RecordVisit upserts the user's layout for a shop: new category order,
// last-used bumped to now, visit count incremented. Called from the trip
// save path when the trip names a store. A nil order keeps the stored one.
func (s *ShopStore) RecordVisit(shopID, userID int64, order []string) (*model.ShopLayout, error) {
	now := time.Now().UTC()
	var err error
	if order != nil {
		_, err = s.db.Exec(
			`INSERT INTO shop_layouts (shop_id, user_id, category_order, last_used_at, visit_count)
			 VALUES (?, ?, ?, ?, 1)
			 ON CONFLICT (shop_id, user_id) DO UPDATE SET
			   category_order = excluded.category_order,
			   last_used_at = excluded.last_used_at,
			   visit_count = visit_count + 1`,
			shopID, userID, encodeOrder(order), now,
		)
	} else {
		_, err = s.db.Exec(
			`INSERT INTO shop_layouts (shop_id, user_id, category_order, last_used_at, visit_count)
			 VALUES (?, ?, NULL, ?, 1)
			 ON CONFLICT (shop_id, user_id) DO UPDATE SET
			   last_used_at = excluded.last_used_at,
			   visit_count = visit_count + 1`,
			shopID, userID, now,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("record visit: %w", err)
	}
	return s.GetLayout(shopID, userID)
}

// ShopWithLayout pairs a shop with the requesting user's layout for it.
type ShopWithLayout struct {
	model.Shop
	Layout model.ShopLayout `json:"layout"`
}

// MyShops returns the shops a user has layouts for, most recently used
// first.
func (s *ShopStore) MyShops(userID int64) ([]ShopWithLayout, error) {
	rows, err := s.db.Query(
		`SELECT s.`+strings.ReplaceAll(shopCols, ", ", ", s.")+`, y.`+strings.ReplaceAll(layoutCols, ", ", ", y.")+`
		 FROM shop_layouts y
		 JOIN shops s ON s.id = y.shop_id
		 WHERE y.user_id = ? AND s.deleted_at IS NULL
		 ORDER BY y.last_used_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("my shops: %w", err)
	}
	defer rows.Close()

	var out []ShopWithLayout
	for rows.Next() {
		var sh model.Shop
		var shopDeleted sql.NullTime
		var l model.ShopLayout
		var order sql.NullString

		err := rows.Scan(
			&sh.ID, &sh.Name, &sh.Color, &sh.CreatedBy, &shopDeleted, &sh.CreatedAt,
			&l.ID, &l.ShopID, &l.UserID, &order, &l.LastUsedAt, &l.VisitCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan shop layout: %w", err)
		}
		l.CategoryOrder = decodeOrder(order)
		out = append(out, ShopWithLayout{Shop: sh, Layout: l})
	}
	return out, rows.Err()
}
