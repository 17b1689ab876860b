package rates

import (
	"errors"
	"fmt"
)

// StandardWorkYearHours is the FAR standard work year. Direct labor rates
// always divide by 2080; utilization targets only scale annual projections.
const StandardWorkYearHours = 2080.0

// DefaultCompensationCap is the statutory ceiling on compensation used as an
// indirect-cost basis, applied when a rate set does not carry its own cap.
const DefaultCompensationCap = 207000.0

// ErrInvalidInput marks a calculation rejected because of bad inputs. It is
// never coerced into a partial result.
var ErrInvalidInput = errors.New("invalid input")

// ContractType is the government contract pricing type. An empty value means
// no contract context, which behaves like T&M for profit purposes but does
// not exempt the compensation cap.
type ContractType string

const (
	FixedPrice       ContractType = "FFP"
	TimeAndMaterials ContractType = "T&M"
	CostPlusFixedFee ContractType = "CPFF"
)

// ParseContractType validates a wire-format contract type. The empty string
// is accepted and means unspecified.
func ParseContractType(raw string) (ContractType, error) {
	switch ContractType(raw) {
	case "", FixedPrice, TimeAndMaterials, CostPlusFixedFee:
		return ContractType(raw), nil
	}
	return "", fmt.Errorf("%w: contract type must be FFP, T&M, or CPFF", ErrInvalidInput)
}

// Employee carries the compensation inputs for one calculation. Name and
// Title are echoed in the output and have no computational effect.
type Employee struct {
	Name       string
	Title      string
	BaseSalary float64
}

// CompanyRateSet holds the company-wide indirect rates for one fiscal year.
// Rates are decimals (0.35 for 35%).
type CompanyRateSet struct {
	FiscalYear         int
	OverheadRate       float64
	GARate             float64
	TargetProfitMargin float64
	CompensationCap    float64
}

// CostBreakdown contains the hourly cost components of the indirect cascade.
type CostBreakdown struct {
	DirectLabor       float64 `json:"directLabor"`
	FringeCost        float64 `json:"fringeCost"`
	OverheadCost      float64 `json:"overheadCost"`
	GACost            float64 `json:"gaCost"`
	TotalBurdenedCost float64 `json:"totalBurdenedCost"`
	WrapRate          float64 `json:"wrapRate"`
}

// RatePercentages echoes the applied rates. Indirect rates are percentages;
// the direct labor rate is an hourly dollar amount.
type RatePercentages struct {
	DirectLaborRate float64 `json:"directLaborRate"`
	FringeRate      float64 `json:"fringeRate"`
	OverheadRate    float64 `json:"overheadRate"`
	GARate          float64 `json:"gaRate"`
}

// EmployeeEcho repeats the calculation inputs in the output record.
type EmployeeEcho struct {
	Name             string  `json:"name,omitempty"`
	Title            string  `json:"title,omitempty"`
	BaseSalary       float64 `json:"baseSalary"`
	UtilizationHours int     `json:"utilizationHours"`
}

// Validation annotates a result with advisory warnings. It never blocks the
// computation.
type Validation struct {
	IsValid  bool     `json:"isValid"`
	Warnings []string `json:"warnings"`
}

// RateStructure is the full output of one burdened-rate calculation.
type RateStructure struct {
	Employee           EmployeeEcho    `json:"employee"`
	Rates              RatePercentages `json:"rates"`
	Costs              CostBreakdown   `json:"costs"`
	TargetBillRate     float64         `json:"targetBillRate"`
	TargetProfitMargin float64         `json:"targetProfitMargin"`
	Validation         *Validation     `json:"validation,omitempty"`
}

// EffectiveSalary applies the compensation cap to an annual salary. Under
// T&M the negotiated hourly rate already embeds all cost elements, so the
// cap does not apply (FAR 16.601). The second return reports whether the
// cap took effect.
func EffectiveSalary(annualSalary, cap float64, contractType ContractType) (float64, bool) {
	if contractType == TimeAndMaterials {
		return annualSalary, false
	}
	if cap > 0 && annualSalary > cap {
		return cap, true
	}
	return annualSalary, false
}

// DirectLaborRate converts an effective annual salary to an hourly rate
// using the 2080-hour standard work year. Utilization hours are validated
// here because downstream projections depend on them, but they are never
// the divisor.
func DirectLaborRate(effectiveSalary float64, utilizationHours int) (float64, error) {
	if effectiveSalary <= 0 {
		return 0, fmt.Errorf("%w: effective salary must be positive", ErrInvalidInput)
	}
	if utilizationHours <= 0 {
		return 0, fmt.Errorf("%w: utilization hours must be positive", ErrInvalidInput)
	}
	return effectiveSalary / StandardWorkYearHours, nil
}

// BurdenedCost applies fringe, overhead, and G&A sequentially to the direct
// labor rate. Each layer compounds on the running subtotal, not the original
// base.
func BurdenedCost(directLabor, fringeRate, overheadRate, gaRate float64) (CostBreakdown, error) {
	if fringeRate < 0 || overheadRate < 0 || gaRate < 0 {
		return CostBreakdown{}, fmt.Errorf("%w: indirect rates must be non-negative", ErrInvalidInput)
	}

	withFringe := directLabor * (1 + fringeRate)
	withOverhead := withFringe * (1 + overheadRate)
	burdened := withOverhead * (1 + gaRate)

	return CostBreakdown{
		DirectLabor:       directLabor,
		FringeCost:        directLabor * fringeRate,
		OverheadCost:      withFringe * overheadRate,
		GACost:            withOverhead * gaRate,
		TotalBurdenedCost: burdened,
		WrapRate:          burdened / directLabor,
	}, nil
}

// ValidateWrapRate flags wrap rates outside the band typical for government
// contractors (roughly 1.8 to 3.5).
func ValidateWrapRate(wrapRate float64) Validation {
	var warnings []string
	if wrapRate < 1.5 {
		warnings = append(warnings, "Wrap rate is unusually low. Verify overhead and G&A rates.")
	}
	if wrapRate > 4.0 {
		warnings = append(warnings, "Wrap rate is unusually high. May impact competitiveness.")
	}
	return Validation{
		IsValid:  wrapRate > 1.0 && wrapRate < 5.0,
		Warnings: warnings,
	}
}

// BuildRateStructure runs the full pipeline: cap policy, direct labor rate,
// fringe aggregation, indirect cascade, profit policy, and wrap-rate
// validation. The validation block is attached only when warnings exist.
func BuildRateStructure(emp Employee, benefits FringeBenefitSet, company CompanyRateSet, utilizationHours int, contractType ContractType) (RateStructure, error) {
	cap := company.CompensationCap
	if cap <= 0 {
		cap = DefaultCompensationCap
	}

	effectiveSalary, capped := EffectiveSalary(emp.BaseSalary, cap, contractType)

	directLabor, err := DirectLaborRate(effectiveSalary, utilizationHours)
	if err != nil {
		return RateStructure{}, err
	}

	fringeRate, err := FringeRate(benefits, effectiveSalary, emp.BaseSalary)
	if err != nil {
		return RateStructure{}, err
	}

	costs, err := BurdenedCost(directLabor, fringeRate, company.OverheadRate, company.GARate)
	if err != nil {
		return RateStructure{}, err
	}

	result := RateStructure{
		Employee: EmployeeEcho{
			Name:             emp.Name,
			Title:            emp.Title,
			BaseSalary:       emp.BaseSalary,
			UtilizationHours: utilizationHours,
		},
		Rates: RatePercentages{
			DirectLaborRate: directLabor,
			FringeRate:      fringeRate * 100,
			OverheadRate:    company.OverheadRate * 100,
			GARate:          company.GARate * 100,
		},
		Costs:              costs,
		TargetBillRate:     TargetBillRate(costs.TotalBurdenedCost, company.TargetProfitMargin, contractType),
		TargetProfitMargin: company.TargetProfitMargin * 100,
	}

	validation := ValidateWrapRate(costs.WrapRate)
	if capped {
		validation.Warnings = append(validation.Warnings, fmt.Sprintf(
			"Salary exceeds FAR compensation cap of $%.0f. Using capped amount for indirect cost calculations (not applicable for T&M contracts).", cap))
	}
	if len(validation.Warnings) > 0 {
		result.Validation = &validation
	}

	return result, nil
}
