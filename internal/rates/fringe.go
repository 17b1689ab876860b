package rates

import (
	"fmt"
	"math"
)

// BenefitCategory names one fringe benefit component. Keys match the wire
// format of the fringe benefits record.
type BenefitCategory string

const (
	HealthInsurance   BenefitCategory = "healthInsurance"
	DentalInsurance   BenefitCategory = "dentalInsurance"
	VisionInsurance   BenefitCategory = "visionInsurance"
	LTDInsurance      BenefitCategory = "ltdInsurance"
	STDInsurance      BenefitCategory = "stdInsurance"
	LifeInsurance     BenefitCategory = "lifeInsurance"
	TrainingBudget    BenefitCategory = "trainingBudget"
	Match401k         BenefitCategory = "match401k"
	PTOCost           BenefitCategory = "ptoCost"
	CellAllowance     BenefitCategory = "cellAllowance"
	InternetAllowance BenefitCategory = "internetAllowance"

	// Payroll taxes; derived from statutory rates when not supplied.
	FICATax BenefitCategory = "ficaTax"
	FUTATax BenefitCategory = "futaTax"
	SUTATax BenefitCategory = "sutaTax"
)

// FringeBenefitSet maps benefit categories to annual dollar costs.
type FringeBenefitSet map[BenefitCategory]float64

// Statutory payroll tax rates and wage bases.
const (
	socialSecurityRate     = 0.062
	socialSecurityWageBase = 168600.0
	medicareRate           = 0.0145
	futaRate               = 0.006
	futaWageBase           = 7000.0
	sutaRate               = 0.027
	sutaWageBase           = 9000.0
)

// excludedCategories never contribute to the fringe total: record
// identifiers that leak in from raw benefit records, and FAR 31.205
// unallowable costs.
var excludedCategories = map[BenefitCategory]struct{}{
	"id":            {},
	"employeeId":    {},
	"entertainment": {},
	"alcohol":       {},
	"fines":         {},
	"penalties":     {},
}

// PayrollTaxes computes employer payroll taxes from statutory rates. FICA
// combines Social Security up to its wage base with uncapped Medicare; FUTA
// and SUTA apply to their own smaller wage bases.
func PayrollTaxes(annualSalary float64) FringeBenefitSet {
	fica := math.Min(annualSalary, socialSecurityWageBase)*socialSecurityRate + annualSalary*medicareRate
	futa := math.Min(annualSalary, futaWageBase) * futaRate
	suta := math.Min(annualSalary, sutaWageBase) * sutaRate

	return FringeBenefitSet{
		FICATax: fica,
		FUTATax: futa,
		SUTATax: suta,
	}
}

// FringeRate sums allowable benefit costs and expresses them relative to the
// effective (capped, where applicable) salary base. When the set carries no
// payroll tax components they are derived from annualSalary — the uncapped
// figure, since taxes are owed on actual wages.
func FringeRate(benefits FringeBenefitSet, effectiveSalary, annualSalary float64) (float64, error) {
	if effectiveSalary <= 0 {
		return 0, fmt.Errorf("%w: fringe salary base must be positive", ErrInvalidInput)
	}

	total := 0.0
	hasTaxes := false
	for category, amount := range benefits {
		switch category {
		case FICATax, FUTATax, SUTATax:
			hasTaxes = true
		}
		if _, skip := excludedCategories[category]; skip {
			continue
		}
		total += amount
	}

	if !hasTaxes {
		for _, tax := range PayrollTaxes(annualSalary) {
			total += tax
		}
	}

	return total / effectiveSalary, nil
}
