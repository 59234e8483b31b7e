package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/safar/storeledger/internal/database"
	"github.com/safar/storeledger/internal/models"
	"github.com/shopspring/decimal"
)

type saleTestContext struct {
	products map[int64]*models.Product
	sale     *models.Sale
	err      error
}

func (c *saleTestContext) reset() {
	c.products = make(map[int64]*models.Product)
	c.sale = nil
	c.err = nil
}

func (c *saleTestContext) aProduct(id int, name, price, cost string, stock int) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	k, err := decimal.NewFromString(cost)
	if err != nil {
		return err
	}
	c.products[int64(id)] = &models.Product{ID: int64(id), Name: name, Price: p, Cost: k, StockLevel: stock}
	return nil
}

func (c *saleTestContext) iSell(qtyA, idA, qtyB, idB int) error {
	lines, err := Coalesce([]models.SaleLineRequest{
		{ProductID: int64(idA), Quantity: qtyA},
		{ProductID: int64(idB), Quantity: qtyB},
	})
	if err != nil {
		c.err = err
		return nil
	}
	c.sale, c.err = BuildSale(lines, c.products, "Cash", time.Now())
	return nil
}

func (c *saleTestContext) theSaleSucceeds() error {
	if c.err != nil {
		return fmt.Errorf("expected sale but got error: %v", c.err)
	}
	return nil
}

func (c *saleTestContext) theSaleFailsWith(kind string) error {
	var want error
	switch kind {
	case "insufficient stock":
		want = database.ErrInsufficientStock
	case "product not found":
		want = database.ErrProductNotFound
	default:
		return fmt.Errorf("unknown failure %q", kind)
	}
	if !errors.Is(c.err, want) {
		return fmt.Errorf("expected %v, got %v", want, c.err)
	}
	if c.sale != nil {
		return errors.New("expected no sale")
	}
	return nil
}

func (c *saleTestContext) theSaleTotalAmountIs(amount string) error {
	return compareDecimal("total amount", c.sale.TotalAmount, amount)
}

func (c *saleTestContext) theSaleTotalCostIs(amount string) error {
	return compareDecimal("total cost", c.sale.TotalCost, amount)
}

func (c *saleTestContext) productHasStock(id, stock int) error {
	p, ok := c.products[int64(id)]
	if !ok {
		return fmt.Errorf("product %d not defined", id)
	}
	if p.StockLevel != stock {
		return fmt.Errorf("product %d: expected stock %d, got %d", id, stock, p.StockLevel)
	}
	return nil
}

func compareDecimal(label string, got decimal.Decimal, want string) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return err
	}
	if !got.Equal(w) {
		return fmt.Errorf("expected %s %s, got %s", label, w, got)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &saleTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a product (\d+) "([^"]*)" priced ([\d.]+) with cost ([\d.]+) and stock (\d+)$`, tc.aProduct)
	ctx.Step(`^I sell (\d+) of product (\d+) and (\d+) of product (\d+)$`, tc.iSell)
	ctx.Step(`^the sale succeeds$`, tc.theSaleSucceeds)
	ctx.Step(`^the sale fails with (insufficient stock|product not found)$`, tc.theSaleFailsWith)
	ctx.Step(`^the sale total amount is ([\d.]+)$`, tc.theSaleTotalAmountIs)
	ctx.Step(`^the sale total cost is ([\d.]+)$`, tc.theSaleTotalCostIs)
	ctx.Step(`^product (\d+) has stock (\d+)$`, tc.productHasStock)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/record_sale.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
