package domain

import "github.com/shopspring/decimal"

// CostBreakdown itemizes the cost of completed work.
type CostBreakdown struct {
	Labor    decimal.Decimal
	Material decimal.Decimal
	CallOut  decimal.Decimal
	Other    decimal.Decimal
}

// Total sums all cost lines.
func (c CostBreakdown) Total() decimal.Decimal {
	return c.Labor.Add(c.Material).Add(c.CallOut).Add(c.Other)
}

// Negative reports whether any cost line is below zero.
func (c CostBreakdown) Negative() bool {
	zero := decimal.Zero
	return c.Labor.LessThan(zero) || c.Material.LessThan(zero) ||
		c.CallOut.LessThan(zero) || c.Other.LessThan(zero)
}
