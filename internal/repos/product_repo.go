package repos

import (
	"errors"

	"github.com/jmoiron/sqlx"

	"sokojumla/internal/domain"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// ListActive returns the catalog in insertion order. That order is the
// documented tie-break for intent matching, so it must be stable.
func (r *ProductRepo) ListActive() ([]domain.Product, error) {
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, category, description, unit, price, stock, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE active = 1
	  ORDER BY rowid
	`)
	return out, err
}

func (r *ProductRepo) Get(id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.Get(&p, `
	  SELECT id, name, category, description, unit, price, stock, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE id = ?
	`, id)
	return p, err
}

// InStock returns up to limit purchasable products, for chat suggestions.
func (r *ProductRepo) InStock(limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []domain.Product
	err := r.db.Select(&out, `
	  SELECT id, name, category, description, unit, price, stock, active,
	         created_at, COALESCE(updated_at,'') AS updated_at
	  FROM products
	  WHERE active = 1 AND stock > 0
	  ORDER BY rowid
	  LIMIT ?
	`, limit)
	return out, err
}

// DecrementStock reduces stock by qty, guarded so it never goes negative.
func (r *ProductRepo) DecrementStock(id string, qty int) error {
	res, err := r.db.Exec(`
	  UPDATE products
	  SET stock = stock - ?, updated_at = CURRENT_TIMESTAMP
	  WHERE id = ? AND stock >= ?
	`, qty, id, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}
