package pricing

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/cucumber/godog"
)

type promotionsTestContext struct {
	items   []Item
	summary Summary
}

func (c *promotionsTestContext) reset() {
	c.items = nil
	c.summary = Summary{}
}

func (c *promotionsTestContext) aCartWithLines(table *godog.Table) error {
	if len(table.Rows) == 0 {
		return nil
	}
	columns := make([]string, len(table.Rows[0].Cells))
	for i, cell := range table.Rows[0].Cells {
		columns[i] = cell.Value
	}
	for _, row := range table.Rows[1:] {
		values := make(map[string]string, len(columns))
		for i, cell := range row.Cells {
			if i < len(columns) {
				values[columns[i]] = cell.Value
			}
		}
		price, err := ParseAmount(values["price"])
		if err != nil {
			return fmt.Errorf("price %q: %w", values["price"], err)
		}
		qty, err := strconv.Atoi(values["quantity"])
		if err != nil {
			return fmt.Errorf("quantity %q: %w", values["quantity"], err)
		}
		c.items = append(c.items, Item{
			ProductID: values["product"],
			Name:      values["name"],
			Category:  values["category"],
			UnitPrice: price,
			Qty:       qty,
			Size:      values["size"],
			Color:     values["color"],
		})
	}
	return nil
}

func (c *promotionsTestContext) anEmptyCart() error {
	c.items = nil
	return nil
}

func (c *promotionsTestContext) theCartIsPriced() error {
	c.summary = Compute(c.items)
	return nil
}

func expectAmount(what string, got Money, want string) error {
	amount, err := ParseAmount(want)
	if err != nil {
		return err
	}
	if got != amount {
		return fmt.Errorf("expected %s %s DHS, got %s", what, want, FormatShort(got))
	}
	return nil
}

func (c *promotionsTestContext) theRegularTotalIs(amount string) error {
	return expectAmount("regular total", c.summary.RegularTotal, amount)
}

func (c *promotionsTestContext) thePromotionalTotalIs(amount string) error {
	return expectAmount("promotional total", c.summary.PromotionalTotal, amount)
}

func (c *promotionsTestContext) theSavingsAre(amount string) error {
	return expectAmount("savings", c.summary.Savings, amount)
}

func (c *promotionsTestContext) theAppliedPromotionsAre(table *godog.Table) error {
	var want []string
	for _, row := range table.Rows {
		want = append(want, row.Cells[0].Value)
	}
	got := c.summary.AppliedPromotions
	if len(got) != len(want) {
		return fmt.Errorf("expected promotions %q, got %q", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("expected promotions %q, got %q", want, got)
		}
	}
	return nil
}

func (c *promotionsTestContext) noPromotionsAreApplied() error {
	if len(c.summary.AppliedPromotions) != 0 {
		return fmt.Errorf("expected no promotions, got %q", c.summary.AppliedPromotions)
	}
	return nil
}

func initializePromotionsScenario(ctx *godog.ScenarioContext) {
	tc := &promotionsTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	ctx.Step(`^a cart with lines:$`, tc.aCartWithLines)
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^the cart is priced$`, tc.theCartIsPriced)
	ctx.Step(`^the regular total is ([\d.]+) DHS$`, tc.theRegularTotalIs)
	ctx.Step(`^the promotional total is ([\d.]+) DHS$`, tc.thePromotionalTotalIs)
	ctx.Step(`^the savings are ([\d.]+) DHS$`, tc.theSavingsAre)
	ctx.Step(`^the applied promotions are:$`, tc.theAppliedPromotionsAre)
	ctx.Step(`^no promotions are applied$`, tc.noPromotionsAreApplied)
}

func TestPromotionFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializePromotionsScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/promotions.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
