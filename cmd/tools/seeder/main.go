package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-apotek/internal/inventory"
	"github.com/noah-isme/backend-apotek/internal/ledger"
	"github.com/noah-isme/backend-apotek/internal/pricing"
)

var customers = []struct {
	Name  string
	Phone string
}{
	{"Budi Santoso", "081234567801"},
	{"Siti Aminah", "081234567802"},
	{"Andi Pratama", "081234567803"},
	{"Dewi Lestari", "081234567804"},
	{"Eko Kurniawan", "081234567805"},
	{"Gita Pertiwi", "081234567806"},
}

func main() {
	bills := flag.Int("bills", 120, "number of bills to create")
	days := flag.Int("days", 90, "spread bills over this many past days")
	csvPath := flag.String("inventory", "", "inventory CSV (defaults to INVENTORY_CSV)")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if *csvPath == "" {
		*csvPath = envOrDefault("INVENTORY_CSV", "data/medicines.csv")
	}

	catalog, err := inventory.LoadCSV(*csvPath)
	if err != nil {
		log.Fatalf("Failed to load inventory: %v", err)
	}
	items := catalog.All(context.Background())
	if len(items) == 0 {
		log.Fatal("Inventory is empty")
	}

	if err := ledger.Migrate(dbURL); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	now := time.Now().UTC()
	rows := 0
	for i := 0; i < *bills; i++ {
		c := customers[rng.IntN(len(customers))]
		at := now.Add(-time.Duration(rng.IntN(*days*24)) * time.Hour).Truncate(time.Second)
		draft := randomDraft(rng, items, c.Name, c.Phone, at)
		if err := insertBill(db, draft); err != nil {
			log.Printf("Failed to seed bill %d: %v", i, err)
			continue
		}
		rows += len(draft.Lines)
	}

	log.Printf("Seeded %d bills (%d rows)", *bills, rows)
}

func randomDraft(rng *rand.Rand, items []inventory.Medicine, name, phone string, at time.Time) ledger.Draft {
	n := 1 + rng.IntN(4)
	picked := map[string]bool{}
	var lineItems []pricing.Item
	for len(lineItems) < n && len(picked) < len(items) {
		m := items[rng.IntN(len(items))]
		if picked[m.Name] {
			continue
		}
		picked[m.Name] = true
		lineItems = append(lineItems, pricing.Item{Name: m.Name, UnitPrice: m.Price, Qty: 1 + rng.IntN(3), Shelf: m.Shelf})
	}
	lines, sum := pricing.DefaultRates.Compute(lineItems)
	return ledger.Draft{
		CustomerName:  name,
		CustomerPhone: phone,
		Lines:         lines,
		BillFinal:     sum.Final,
		BilledAt:      at,
	}
}

// insertBill writes all rows of one bill in a single transaction.
func insertBill(db *sql.DB, d ledger.Draft) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO ledger_rows (customer_name, customer_phone, item_name, unit_price, quantity,
			line_total, line_discount, line_tax, bill_final, billed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range d.Rows() {
		if _, err := stmt.Exec(r.CustomerName, r.CustomerPhone, r.ItemName, money(r.UnitPrice), r.Quantity,
			money(r.LineTotal), money(r.LineDiscount), money(r.LineTax), money(r.BillFinal), r.BilledAt); err != nil {
			return fmt.Errorf("insert %s: %w", r.ItemName, err)
		}
	}
	return tx.Commit()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
