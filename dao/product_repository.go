package dao

import (
	"context"
	"database/sql"
	"errors"

	"bargain-backend/model"

	"github.com/shopspring/decimal"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Insert(ctx context.Context, p *model.Product) error {
	query := `INSERT INTO products (id, name, price, min_price, views_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	var minPrice decimal.NullDecimal
	if p.MinPrice != nil {
		minPrice = decimal.NewNullDecimal(*p.MinPrice)
	}
	var createdAt sql.NullTime
	if p.CreatedAt != nil {
		createdAt = sql.NullTime{Time: utc(*p.CreatedAt), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query, p.ID, p.Name, p.Price, minPrice, p.ViewsCount, createdAt)
	return err
}

// GetByID returns nil, nil when the product does not exist.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, name, price, min_price, views_count, created_at
		FROM products
		WHERE id = ?
	`
	row := r.db.QueryRowContext(ctx, query, id)

	var p model.Product
	var minPrice decimal.NullDecimal
	var createdAt sql.NullTime

	if err := row.Scan(&p.ID, &p.Name, &p.Price, &minPrice, &p.ViewsCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}

	if minPrice.Valid {
		v := minPrice.Decimal
		p.MinPrice = &v
	}
	if createdAt.Valid {
		t := utc(createdAt.Time)
		p.CreatedAt = &t
	}

	return &p, nil
}

func (r *ProductRepository) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE products SET views_count = views_count + 1 WHERE id = ?`, id)
	return err
}
