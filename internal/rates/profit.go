package rates

import (
	"fmt"
	"math"
)

// maxCostPlusFee is the FAR 15.404-4(c)(4)(i) fee ceiling for cost-plus
// contracts.
const maxCostPlusFee = 0.10

// TargetBillRate computes the recommended bill rate from a burdened cost and
// target margin, adjusted by contract type: fixed price carries a 20% margin
// uplift for risk, cost-plus fees are capped at 10%, and T&M (or no contract
// context) applies the margin as configured.
func TargetBillRate(burdenedCost, targetMargin float64, contractType ContractType) float64 {
	switch contractType {
	case FixedPrice:
		return burdenedCost * (1 + targetMargin*1.2)
	case CostPlusFixedFee:
		return burdenedCost * (1 + math.Min(targetMargin, maxCostPlusFee))
	default:
		return burdenedCost * (1 + targetMargin)
	}
}

// ProfitAnalysis compares a negotiated bill rate against burdened cost.
// Margin and markup are percentages.
type ProfitAnalysis struct {
	Profit       float64 `json:"profit"`
	ProfitMargin float64 `json:"profitMargin"`
	Markup       float64 `json:"markup"`
}

// AnalyzeProfit computes profit, margin, and markup for an actual bill rate.
func AnalyzeProfit(billRate, burdenedCost float64) (ProfitAnalysis, error) {
	if billRate <= 0 {
		return ProfitAnalysis{}, fmt.Errorf("%w: bill rate must be positive", ErrInvalidInput)
	}
	if burdenedCost <= 0 {
		return ProfitAnalysis{}, fmt.Errorf("%w: burdened cost must be positive", ErrInvalidInput)
	}

	profit := billRate - burdenedCost
	return ProfitAnalysis{
		Profit:       profit,
		ProfitMargin: profit / billRate * 100,
		Markup:       profit / burdenedCost * 100,
	}, nil
}
