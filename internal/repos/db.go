package repos

import (
	"log"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

func OpenDB(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	// Seed baseline wholesale catalog if DB is empty
	if err := seedIfEmpty(db); err != nil {
		return nil, err
	}

	return db, nil
}

func ensureSchema(db *sqlx.DB) error {
	schema := `
PRAGMA foreign_keys = ON;

-- Products (wholesale catalog; stock lives on the product row)
CREATE TABLE IF NOT EXISTS products(
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  unit TEXT NOT NULL DEFAULT '',
  price NUMERIC NOT NULL CHECK (price >= 0),
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_products_name     ON products(LOWER(name));
CREATE INDEX IF NOT EXISTS idx_products_category ON products(category);
CREATE INDEX IF NOT EXISTS idx_products_stock    ON products(stock);

-- Orders
CREATE TABLE IF NOT EXISTS orders(
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  payment_method TEXT NOT NULL CHECK (payment_method IN ('mpesa','cash')),
  phone TEXT,
  total NUMERIC NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  mpesa_merchant_request_id TEXT,
  mpesa_checkout_request_id TEXT,
  mpesa_response_code TEXT,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP,
  updated_at TEXT
);
CREATE INDEX IF NOT EXISTS idx_orders_session    ON orders(session_id);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
CREATE INDEX IF NOT EXISTS idx_orders_checkout_req ON orders(mpesa_checkout_request_id);

CREATE TABLE IF NOT EXISTS order_items(
  order_id   TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL REFERENCES products(id),
  qty INTEGER NOT NULL CHECK (qty >= 1),
  price NUMERIC NOT NULL,
  PRIMARY KEY (order_id, product_id)
);

-- Chat transcript (append-only)
CREATE TABLE IF NOT EXISTS conversation_turns(
  id TEXT PRIMARY KEY,
  session_id TEXT NOT NULL,
  sender TEXT NOT NULL CHECK (sender IN ('user','bot')),
  text TEXT NOT NULL,
  requires_confirmation INTEGER NOT NULL DEFAULT 0,
  created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON conversation_turns(session_id, created_at);
`
	_, err := db.Exec(schema)
	return err
}

func seedIfEmpty(db *sqlx.DB) error {
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM products`); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	log.Println("[seed] inserting demo wholesale catalog")

	tx := db.MustBegin()
	tx.MustExec(`INSERT INTO products(id,name,category,description,unit,price,stock) VALUES
	  ('sugar-50kg','Sugar 50kg','staples','Mumias white sugar, 50kg sack','50kg sack',45.99,10),
	  ('cooking-oil-10l','Cooking Oil 10L','staples','Fresh Fri vegetable oil, 10L jerrican','10L jerrican',28.50,24),
	  ('rice-25kg','Rice 25kg','staples','Pishori grade 1 rice, 25kg bag','25kg bag',52.00,16),
	  ('maize-flour-bale','Maize Flour Bale','flour','Jogoo maize flour, 12x2kg bale','12x2kg bale',18.75,40),
	  ('wheat-flour-bale','Wheat Flour Bale','flour','Exe wheat flour, 12x2kg bale','12x2kg bale',21.30,32),
	  ('salt-bale','Salt Bale','staples','Kensalt, 24x200g bale','24x200g bale',6.20,60),
	  ('tea-leaves-5kg','Tea Leaves 5kg','beverages','Kericho Gold loose tea, 5kg carton','5kg carton',34.90,0)`)

	return tx.Commit()
}
