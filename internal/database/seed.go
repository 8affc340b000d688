package database

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jmoiron/sqlx"

	logx "github.com/sql-assistant/server/pkg/logger"
	pkgmysql "github.com/sql-assistant/server/pkg/mysql"
)

// SeedOptions controls the size of the demo retail dataset.
type SeedOptions struct {
	Customers int
	Orders    int
	// Reset drops the demo tables before creating them.
	Reset bool
	// RandSeed makes the generated data reproducible.
	RandSeed int64
	Now      time.Time
}

func DefaultSeedOptions() SeedOptions {
	return SeedOptions{Customers: 100, Orders: 1000, Reset: true, RandSeed: 42}
}

var retailSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
    category_id INT PRIMARY KEY AUTO_INCREMENT,
    category_name VARCHAR(50) NOT NULL,
    description TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS products (
    product_id INT PRIMARY KEY AUTO_INCREMENT,
    category_id INT,
    product_name VARCHAR(100) NOT NULL,
    description TEXT,
    price DECIMAL(10, 2) NOT NULL,
    stock_quantity INT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (category_id) REFERENCES categories(category_id)
)`,
	`CREATE TABLE IF NOT EXISTS customers (
    customer_id INT PRIMARY KEY AUTO_INCREMENT,
    first_name VARCHAR(50) NOT NULL,
    last_name VARCHAR(50) NOT NULL,
    email VARCHAR(100) UNIQUE NOT NULL,
    phone VARCHAR(20),
    address TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`,
	`CREATE TABLE IF NOT EXISTS orders (
    order_id INT PRIMARY KEY AUTO_INCREMENT,
    customer_id INT,
    order_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    total_amount DECIMAL(10, 2) NOT NULL,
    status ENUM('pending', 'processing', 'shipped', 'delivered', 'cancelled') DEFAULT 'pending',
    shipping_address TEXT,
    FOREIGN KEY (customer_id) REFERENCES customers(customer_id)
)`,
	`CREATE TABLE IF NOT EXISTS order_items (
    order_item_id INT PRIMARY KEY AUTO_INCREMENT,
    order_id INT,
    product_id INT,
    quantity INT NOT NULL,
    unit_price DECIMAL(10, 2) NOT NULL,
    subtotal DECIMAL(10, 2) NOT NULL,
    FOREIGN KEY (order_id) REFERENCES orders(order_id),
    FOREIGN KEY (product_id) REFERENCES products(product_id)
)`,
}

// drop order respects foreign keys.
var retailTables = []string{"order_items", "orders", "customers", "products", "categories"}

var seedCategories = []struct {
	Name        string
	Description string
	Products    []string
}{
	{"Electronics", "Electronic devices and accessories", []string{
		"Smartphone", "Laptop", "Tablet", "Headphones", "Smart Watch",
		"Camera", "Speaker", "Power Bank", "Gaming Console", "Monitor"}},
	{"Clothing", "Apparel and fashion items", []string{
		"T-Shirt", "Jeans", "Dress", "Jacket", "Sweater",
		"Shorts", "Skirt", "Coat", "Socks", "Hat"}},
	{"Books", "Books and publications", []string{
		"Novel", "Textbook", "Cookbook", "Biography", "Science Fiction",
		"Mystery", "History Book", "Self-Help", "Comic Book", "Dictionary"}},
	{"Home & Garden", "Home improvement and garden supplies", []string{
		"Plant Pot", "Garden Tools", "Lamp", "Pillow", "Blanket",
		"Curtains", "Rug", "Storage Box", "Vase", "Clock"}},
	{"Sports", "Sports equipment and accessories", []string{
		"Basketball", "Tennis Racket", "Soccer Ball", "Yoga Mat", "Dumbbells",
		"Running Shoes", "Bicycle", "Swimming Goggles", "Golf Clubs", "Jump Rope"}},
}

var orderStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled"}

type seedCategory struct {
	Name        string `db:"category_name"`
	Description string `db:"description"`
}

type seedProduct struct {
	Category    int // index into categories
	Name        string
	Description string
	Price       float64
	Stock       int
}

type seedCustomer struct {
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"`
	Phone     string `db:"phone"`
	Address   string `db:"address"`
}

type seedItem struct {
	Product   int // index into products
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

type seedOrder struct {
	Customer int // index into customers
	Date     time.Time
	Status   string
	Address  string
	Items    []seedItem
	Total    float64
}

type dataset struct {
	Categories []seedCategory
	Products   []seedProduct
	Customers  []seedCustomer
	Orders     []seedOrder
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// generateDataset builds the demo rows in memory; references between rows
// are slice indexes resolved to ids at insert time.
func generateDataset(opts SeedOptions) dataset {
	faker := gofakeit.New(opts.RandSeed)
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	var ds dataset
	for ci, c := range seedCategories {
		ds.Categories = append(ds.Categories, seedCategory{Name: c.Name, Description: c.Description})
		for _, name := range c.Products {
			ds.Products = append(ds.Products, seedProduct{
				Category:    ci,
				Name:        name,
				Description: clip(faker.Sentence(15), 100),
				Price:       round2(faker.Float64Range(10, 1000)),
				Stock:       faker.Number(0, 1000),
			})
		}
	}

	for i := 0; i < opts.Customers; i++ {
		first, last := faker.FirstName(), faker.LastName()
		ds.Customers = append(ds.Customers, seedCustomer{
			FirstName: first,
			LastName:  last,
			Email:     strings.ToLower(fmt.Sprintf("%s.%s.%d@%s", first, last, i+1, faker.DomainName())),
			Phone:     clip(faker.Phone(), 20),
			Address:   faker.Address().Address,
		})
	}

	if len(ds.Customers) == 0 {
		return ds
	}
	for i := 0; i < opts.Orders; i++ {
		order := seedOrder{
			Customer: faker.Number(0, len(ds.Customers)-1),
			Date:     faker.DateRange(now.AddDate(-1, 0, 0), now),
			Status:   faker.RandomString(orderStatuses),
			Address:  faker.Address().Address,
		}
		for n := faker.Number(1, 5); n > 0; n-- {
			p := faker.Number(0, len(ds.Products)-1)
			qty := faker.Number(1, 5)
			price := ds.Products[p].Price
			item := seedItem{Product: p, Quantity: qty, UnitPrice: price, Subtotal: round2(price * float64(qty))}
			order.Items = append(order.Items, item)
			order.Total = round2(order.Total + item.Subtotal)
		}
		ds.Orders = append(ds.Orders, order)
	}
	return ds
}

// Seed creates the demo retail database described by cfg and fills it with
// generated data.
func Seed(ctx context.Context, cfg pkgmysql.Config, opts SeedOptions) error {
	if cfg.Database == "" {
		return fmt.Errorf("seed: database name is required")
	}

	server := cfg
	server.Database = ""
	admin, err := server.New(ctx)
	if err != nil {
		return fmt.Errorf("seed: connect to server: %w", err)
	}
	_, err = admin.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(cfg.Database))
	_ = admin.Close()
	if err != nil {
		return fmt.Errorf("seed: create database: %w", err)
	}
	logx.Info().Str("database", cfg.Database).Msg("database created")

	db, err := cfg.New(ctx)
	if err != nil {
		return fmt.Errorf("seed: connect to database: %w", err)
	}
	defer db.Close()

	if err := createRetailTables(ctx, db, opts.Reset); err != nil {
		return err
	}
	logx.Info().Msg("all tables created")

	if err := insertDataset(ctx, db, generateDataset(opts)); err != nil {
		return err
	}
	logx.Info().Int("customers", opts.Customers).Int("orders", opts.Orders).Msg("sample data generated")
	return nil
}

func createRetailTables(ctx context.Context, db *sqlx.DB, reset bool) error {
	if reset {
		for _, t := range retailTables {
			if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(t)); err != nil {
				return fmt.Errorf("seed: drop %s: %w", t, err)
			}
		}
	}
	for _, stmt := range retailSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed: create table: %w", err)
		}
	}
	return nil
}

func insertDataset(ctx context.Context, db *sqlx.DB, ds dataset) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	categoryIDs := make([]int64, len(ds.Categories))
	for i, c := range ds.Categories {
		res, err := tx.NamedExecContext(ctx,
			`INSERT INTO categories (category_name, description) VALUES (:category_name, :description)`, c)
		if err != nil {
			return fmt.Errorf("seed: insert category: %w", err)
		}
		if categoryIDs[i], err = res.LastInsertId(); err != nil {
			return err
		}
	}

	productIDs := make([]int64, len(ds.Products))
	for i, p := range ds.Products {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO products (category_id, product_name, description, price, stock_quantity) VALUES (?, ?, ?, ?, ?)`,
			categoryIDs[p.Category], p.Name, p.Description, p.Price, p.Stock)
		if err != nil {
			return fmt.Errorf("seed: insert product: %w", err)
		}
		if productIDs[i], err = res.LastInsertId(); err != nil {
			return err
		}
	}

	customerIDs := make([]int64, len(ds.Customers))
	for i, c := range ds.Customers {
		res, err := tx.NamedExecContext(ctx,
			`INSERT INTO customers (first_name, last_name, email, phone, address) VALUES (:first_name, :last_name, :email, :phone, :address)`, c)
		if err != nil {
			return fmt.Errorf("seed: insert customer: %w", err)
		}
		if customerIDs[i], err = res.LastInsertId(); err != nil {
			return err
		}
	}

	for _, o := range ds.Orders {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO orders (customer_id, order_date, total_amount, status, shipping_address) VALUES (?, ?, ?, ?, ?)`,
			customerIDs[o.Customer], o.Date, o.Total, o.Status, o.Address)
		if err != nil {
			return fmt.Errorf("seed: insert order: %w", err)
		}
		orderID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, it := range o.Items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price, subtotal) VALUES (?, ?, ?, ?, ?)`,
				orderID, productIDs[it.Product], it.Quantity, it.UnitPrice, it.Subtotal); err != nil {
				return fmt.Errorf("seed: insert order item: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}
