/*
Package demo loads example data for local development and demonstrations.

AVAILABLE SCENARIOS:

	corner-shop:  Two categories, four products, restocks and a few sales
	oversold:     A product sold past its stock, showing negative quantity

HOW SCENARIOS WORK:
 1. Create categories, products and customers through the catalog
 2. Restock products through the ledger
 3. Record sales through the sale coordinator

Everything goes through the inventory services, so the data obeys the same
rules as API traffic. The context must carry an admin actor.

USAGE:

	ctx := access.WithActor(ctx, adminActor)
	err := demo.Load(ctx, "corner-shop", demo.Services{...})
*/
package demo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/inventory"
	"github.com/warp/inventory-ledger/logger"
)

// Scenario describes a loadable data set.
type Scenario struct {
	ID          string
	Name        string
	Description string
}

var Scenarios = []Scenario{
	{
		ID:          "corner-shop",
		Name:        "Corner Shop",
		Description: "Small catalog with restocks and a few sales",
	},
	{
		ID:          "oversold",
		Name:        "Oversold",
		Description: "A product sold past its stock (negative quantity)",
	},
}

// Services are the inventory services the loaders write through.
type Services struct {
	Catalog *inventory.Catalog
	Ledger  *inventory.Ledger
	Sales   *inventory.Sales
}

// Load runs the named scenario.
func Load(ctx context.Context, id string, svc Services) error {
	var err error
	switch id {
	case "corner-shop":
		err = loadCornerShop(ctx, svc)
	case "oversold":
		err = loadOversold(ctx, svc)
	default:
		return fmt.Errorf("unknown scenario %q", id)
	}
	if err != nil {
		return fmt.Errorf("load scenario %s: %w", id, err)
	}

	logger.FromContext(ctx).Info("demo scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadCornerShop(ctx context.Context, svc Services) error {
	b := &builder{ctx: ctx, svc: svc}

	drinks := b.category("Drinks", "Cold and hot beverages")
	snacks := b.category("Snacks", "")

	cola := b.product("DRK-001", "Cola 330ml", 150, &drinks)
	coffee := b.product("DRK-002", "Coffee beans 1kg", 1899, &drinks)
	crisps := b.product("SNK-001", "Salted crisps", 120, &snacks)
	b.product("", "Gift card", 2500, nil)

	b.restock(cola, 48, "Pallet from supplier")
	b.restock(coffee, 10, "")
	b.restock(crisps, 30, "")

	ada := b.customer("Ada Lovelace", "ada@example.com")
	alan := b.customer("Alan Turing", "alan@example.com")

	b.sale(ada, line(cola, 6, 900, "six-pack"), line(crisps, 2, 240, ""))
	b.sale(alan, line(coffee, 1, 1899, ""), inventory.LineItem{SubtotalCents: 300, Note: "Grinding service"})

	return b.err
}

func loadOversold(ctx context.Context, svc Services) error {
	b := &builder{ctx: ctx, svc: svc}

	umbrella := b.product("", "Umbrella", 1200, nil)
	b.restock(umbrella, 2, "Last units")
	grace := b.customer("Grace Hopper", "grace@example.com")

	// Stock is not checked at sale time; the ledger goes to -1.
	b.sale(grace, line(umbrella, 3, 3600, "rainy day"))

	return b.err
}

// =============================================================================
// BUILDER
// =============================================================================

// builder stops at the first error so loaders read as a straight list.
type builder struct {
	ctx context.Context
	svc Services
	err error
}

func (b *builder) category(name, description string) inventory.CategoryID {
	if b.err != nil {
		return 0
	}
	var id inventory.CategoryID
	id, b.err = b.svc.Catalog.CreateCategory(b.ctx, inventory.Category{Name: name, Description: description})
	return id
}

func (b *builder) product(sku, name string, price inventory.Cents, category *inventory.CategoryID) inventory.ProductID {
	if b.err != nil {
		return 0
	}
	p := inventory.Product{Active: true, Name: name, PriceCents: price, CategoryID: category}
	if sku != "" {
		p.SKU = &sku
	}
	var id inventory.ProductID
	id, b.err = b.svc.Catalog.CreateProduct(b.ctx, p)
	return id
}

func (b *builder) customer(name, email string) inventory.CustomerID {
	if b.err != nil {
		return 0
	}
	var id inventory.CustomerID
	id, b.err = b.svc.Catalog.CreateCustomer(b.ctx, inventory.Customer{Name: name, Email: email})
	return id
}

func (b *builder) restock(product inventory.ProductID, qty int64, note string) {
	if b.err != nil {
		return
	}
	_, b.err = b.svc.Ledger.Append(b.ctx, inventory.LogEntry{
		Type:      inventory.LogRestock,
		ProductID: product,
		Delta:     qty,
		Note:      note,
	})
}

func (b *builder) sale(customer inventory.CustomerID, lines ...inventory.LineItem) {
	if b.err != nil {
		return
	}
	_, b.err = b.svc.Sales.CreateSale(b.ctx, inventory.NewSale{CustomerID: customer, Lines: lines})
}

func line(product inventory.ProductID, qty int64, subtotal inventory.Cents, note string) inventory.LineItem {
	return inventory.LineItem{ProductID: &product, Quantity: &qty, SubtotalCents: subtotal, Note: note}
}
