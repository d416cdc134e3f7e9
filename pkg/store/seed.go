package store

import (
	"context"
	"fmt"
	"time"
)

const seedSchema = `
DROP TABLE IF EXISTS refunds;
DROP TABLE IF EXISTS order_items;
DROP TABLE IF EXISTS orders;
DROP TABLE IF EXISTS products;
DROP TABLE IF EXISTS customers;

CREATE TABLE customers (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT,
    phone TEXT,
    address TEXT,
    created_at TEXT NOT NULL
);

CREATE TABLE products (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    category TEXT NOT NULL,
    price REAL NOT NULL,
    stock_level INTEGER NOT NULL
);

CREATE TABLE orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_id INTEGER NOT NULL,
    order_date TEXT NOT NULL,
    total_amount REAL NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    FOREIGN KEY(customer_id) REFERENCES customers(id)
);

CREATE TABLE order_items (
    order_id INTEGER NOT NULL,
    product_id INTEGER NOT NULL,
    quantity INTEGER NOT NULL,
    unit_price REAL NOT NULL,
    FOREIGN KEY(order_id) REFERENCES orders(id),
    FOREIGN KEY(product_id) REFERENCES products(id)
);

CREATE TABLE refunds (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL,
    amount REAL NOT NULL,
    reason TEXT NOT NULL,
    refund_date TEXT NOT NULL,
    status TEXT NOT NULL,
    FOREIGN KEY(order_id) REFERENCES orders(id)
);
`

// Seed rebuilds the five retail tables with deterministic sample data.
// Dates are relative to the current day so recency-window queries stay
// meaningful.
func (s *Store) Seed(ctx context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, seedSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	now := time.Now().UTC()
	day := func(daysAgo int) string {
		return now.AddDate(0, 0, -daysAgo).Format("2006-01-02")
	}

	customers := [][]any{
		{"Alice Smith", "alice@example.com", "555-123-0001", "123 Main St, Springfield", day(300)},
		{"Bob Johnson", "bob.j@example.com", "555-123-0002", "456 Oak Ave, Metropolis", day(200)},
		{"Charlie Brown", "charlie.brown@example.com", "555-123-0003", "789 Pine Rd, Smallville", day(150)},
		{"Dana Lee", "dana.lee@example.com", "555-123-0004", "321 Birch Blvd, Gotham", day(90)},
		{"Evan Wright", "evan.w@example.com", "555-123-0005", "654 Cedar St, Star City", day(30)},
	}
	for _, row := range customers {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO customers(name, email, phone, address, created_at) VALUES (?,?,?,?,?)", row...); err != nil {
			return fmt.Errorf("seed customers: %w", err)
		}
	}

	products := [][]any{
		{"T-shirt", "Apparel", 25.00, 200},
		{"Jeans", "Apparel", 60.00, 120},
		{"Sneakers", "Footwear", 90.00, 80},
		{"Backpack", "Accessories", 45.00, 50},
		{"Water Bottle", "Accessories", 15.00, 300},
	}
	for _, row := range products {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO products(name, category, price, stock_level) VALUES (?,?,?,?)", row...); err != nil {
			return fmt.Errorf("seed products: %w", err)
		}
	}

	orders := [][]any{
		{1, day(40), "shipped"},
		{1, day(10), "processing"},
		{2, day(70), "delivered"},
		{3, day(15), "shipped"},
		{4, day(5), "processing"},
		{5, day(2), "pending"},
	}
	for _, row := range orders {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO orders(customer_id, order_date, total_amount, status) VALUES (?,?,0,?)", row...); err != nil {
			return fmt.Errorf("seed orders: %w", err)
		}
	}

	orderItems := [][]any{
		{1, 1, 2, 25.00},
		{1, 5, 3, 15.00},
		{2, 2, 1, 60.00},
		{2, 3, 1, 90.00},
		{3, 1, 1, 25.00},
		{3, 2, 2, 60.00},
		{4, 4, 1, 45.00},
		{4, 5, 2, 15.00},
		{5, 1, 3, 25.00},
		{5, 3, 1, 90.00},
		{6, 2, 1, 60.00},
		{6, 4, 1, 45.00},
	}
	for _, row := range orderItems {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO order_items(order_id, product_id, quantity, unit_price) VALUES (?,?,?,?)", row...); err != nil {
			return fmt.Errorf("seed order_items: %w", err)
		}
	}

	refunds := [][]any{
		{3, 25.00, "damaged item", day(60), "approved"},
		{4, 45.00, "changed mind", day(8), "pending"},
	}
	for _, row := range refunds {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO refunds(order_id, amount, reason, refund_date, status) VALUES (?,?,?,?,?)", row...); err != nil {
			return fmt.Errorf("seed refunds: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, `
		UPDATE orders
		SET total_amount = (
		    SELECT SUM(quantity * unit_price) FROM order_items WHERE order_items.order_id = orders.id
		)`); err != nil {
		return fmt.Errorf("recompute totals: %w", err)
	}

	return nil
}
