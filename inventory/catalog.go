package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/access"
	"github.com/warp/inventory-ledger/logger"
)

// =============================================================================
// CATALOG - Categories, customers and products
// =============================================================================

// Catalog manages the reference entities sales and ledger entries point at.
// Field checks are shallow; referential integrity is left to the store.
type Catalog struct {
	store Store
}

func NewCatalog(store Store) *Catalog {
	return &Catalog{store: store}
}

// run checks the caller's level, then validate (if any), then executes fn
// in a transaction.
func (c *Catalog) run(ctx context.Context, level access.Level, validate func() error, fn func(tx Tx) error) error {
	if _, err := access.Require(ctx, level); err != nil {
		return err
	}
	if validate != nil {
		if err := validate(); err != nil {
			return err
		}
	}
	return translateConstraint(c.store.WithTx(ctx, fn))
}

// view checks read level and executes fn in a read transaction.
func (c *Catalog) view(ctx context.Context, fn func(tx Tx) error) error {
	if _, err := access.Require(ctx, access.LevelRead); err != nil {
		return err
	}
	return c.store.ReadTx(ctx, fn)
}

// -----------------------------------------------------------------------------
// Categories
// -----------------------------------------------------------------------------

func (c *Catalog) CreateCategory(ctx context.Context, cat Category) (CategoryID, error) {
	var id CategoryID
	err := c.run(ctx, access.LevelAdmin, func() error {
		return requireName(cat.Name)
	}, func(tx Tx) error {
		var err error
		id, err = tx.InsertCategory(ctx, cat)
		return err
	})
	return id, err
}

func (c *Catalog) GetCategory(ctx context.Context, id CategoryID) (Category, error) {
	var cat Category
	err := c.view(ctx, func(tx Tx) error {
		var err error
		cat, err = tx.GetCategory(ctx, id)
		return notFoundAs(err, ErrCategoryNotFound)
	})
	return cat, err
}

func (c *Catalog) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	err := c.view(ctx, func(tx Tx) error {
		var err error
		cats, err = tx.ListCategories(ctx)
		return err
	})
	return cats, err
}

func (c *Catalog) UpdateCategory(ctx context.Context, id CategoryID, patch CategoryPatch) error {
	return c.run(ctx, access.LevelAdmin, func() error {
		if patch.Empty() {
			return ErrNothingToUpdate
		}
		return patchName(patch.Name)
	}, func(tx Tx) error {
		return notFoundAs(tx.UpdateCategory(ctx, id, patch), ErrCategoryNotFound)
	})
}

// DeleteCategory removes a category. Its products become uncategorized.
func (c *Catalog) DeleteCategory(ctx context.Context, id CategoryID) error {
	return c.run(ctx, access.LevelAdmin, nil, func(tx Tx) error {
		return notFoundAs(tx.DeleteCategory(ctx, id), ErrCategoryNotFound)
	})
}

// -----------------------------------------------------------------------------
// Customers
// -----------------------------------------------------------------------------

func (c *Catalog) CreateCustomer(ctx context.Context, cust Customer) (CustomerID, error) {
	var id CustomerID
	err := c.run(ctx, access.LevelWrite, func() error {
		return requireName(cust.Name)
	}, func(tx Tx) error {
		var err error
		id, err = tx.InsertCustomer(ctx, cust)
		return err
	})
	return id, err
}

func (c *Catalog) GetCustomer(ctx context.Context, id CustomerID) (Customer, error) {
	var cust Customer
	err := c.view(ctx, func(tx Tx) error {
		var err error
		cust, err = tx.GetCustomer(ctx, id)
		return notFoundAs(err, ErrCustomerNotFound)
	})
	return cust, err
}

func (c *Catalog) ListCustomers(ctx context.Context) ([]Customer, error) {
	var custs []Customer
	err := c.view(ctx, func(tx Tx) error {
		var err error
		custs, err = tx.ListCustomers(ctx)
		return err
	})
	return custs, err
}

func (c *Catalog) UpdateCustomer(ctx context.Context, id CustomerID, patch CustomerPatch) error {
	return c.run(ctx, access.LevelWrite, func() error {
		if patch.Empty() {
			return ErrNothingToUpdate
		}
		return patchName(patch.Name)
	}, func(tx Tx) error {
		return notFoundAs(tx.UpdateCustomer(ctx, id, patch), ErrCustomerNotFound)
	})
}

// DeleteCustomer fails with ErrCustomerInUse while sales reference the customer.
func (c *Catalog) DeleteCustomer(ctx context.Context, id CustomerID) error {
	return c.run(ctx, access.LevelAdmin, nil, func(tx Tx) error {
		return notFoundAs(tx.DeleteCustomer(ctx, id), ErrCustomerNotFound)
	})
}

// -----------------------------------------------------------------------------
// Products
// -----------------------------------------------------------------------------

func (c *Catalog) CreateProduct(ctx context.Context, p Product) (ProductID, error) {
	var id ProductID
	err := c.run(ctx, access.LevelWrite, func() error {
		if err := requireName(p.Name); err != nil {
			return err
		}
		return checkPrice(p.PriceCents)
	}, func(tx Tx) error {
		var err error
		id, err = tx.InsertProduct(ctx, p)
		return err
	})
	if err == nil {
		logger.FromContext(ctx).Info("product created",
			zap.Int64("product_id", int64(id)), zap.String("name", p.Name))
	}
	return id, err
}

// GetProduct returns a product with its quantity derived from the ledger.
func (c *Catalog) GetProduct(ctx context.Context, id ProductID) (Product, error) {
	var p Product
	err := c.view(ctx, func(tx Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		return notFoundAs(err, ErrProductNotFound)
	})
	return p, err
}

func (c *Catalog) ListProducts(ctx context.Context) ([]Product, error) {
	var ps []Product
	err := c.view(ctx, func(tx Tx) error {
		var err error
		ps, err = tx.ListProducts(ctx)
		return err
	})
	return ps, err
}

func (c *Catalog) UpdateProduct(ctx context.Context, id ProductID, patch ProductPatch) error {
	return c.run(ctx, access.LevelWrite, func() error {
		if patch.Empty() {
			return ErrNothingToUpdate
		}
		if err := patchName(patch.Name); err != nil {
			return err
		}
		if patch.PriceCents != nil {
			return checkPrice(*patch.PriceCents)
		}
		return nil
	}, func(tx Tx) error {
		return notFoundAs(tx.UpdateProduct(ctx, id, patch), ErrProductNotFound)
	})
}

// DeleteProduct fails with ErrProductInUse while ledger entries reference it.
func (c *Catalog) DeleteProduct(ctx context.Context, id ProductID) error {
	return c.run(ctx, access.LevelAdmin, nil, func(tx Tx) error {
		return notFoundAs(tx.DeleteProduct(ctx, id), ErrProductNotFound)
	})
}

func requireName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	return nil
}

func patchName(name *string) error {
	if name != nil {
		return requireName(*name)
	}
	return nil
}

func checkPrice(price Cents) error {
	switch {
	case price < 0:
		return ErrNegativePrice
	case price > MaxCents:
		return ErrPriceOutOfRange
	}
	return nil
}
