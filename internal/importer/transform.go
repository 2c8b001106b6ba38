package importer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nimasrn/policy-desk/internal/company"
	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/nimasrn/policy-desk/internal/validation"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]`)

// toPolicy builds the stored record from a row that already passed
// validation. Optional numerics that do not parse become zero.
func toPolicy(row validation.Row, ownerID string, normalizer *company.Normalizer) *model.Policy {
	activeDate, _ := dates.ParseCell(row.PolicyStartDate)
	expiryDate, _ := dates.ParseCell(row.PolicyEndDate)
	contact, _ := validation.NormalizeMobile(row.MobileNumber)
	insuranceType, _ := model.ParseInsuranceType(row.InsuranceType)

	return &model.Policy{
		OwnerID:              ownerID,
		PolicyNumber:         strings.ToUpper(strings.TrimSpace(row.PolicyNumber)),
		ClientName:           row.CustomerName,
		ContactNumber:        contact,
		InsuranceType:        insuranceType,
		ActiveDate:           activeDate,
		ExpiryDate:           expiryDate,
		NetPremium:           amountOrZero(row.PremiumAmount),
		PremiumFrequency:     row.PremiumFrequency,
		CommissionPercentage: amountOrZero(row.CommissionPercentage),
		CompanyName:          normalizer.Normalize(row.InsuranceCompany),
		VehicleNumber:        VehicleNumber(row.VehicleNumber),
		VehicleMake:          row.VehicleMake,
		VehicleModel:         row.VehicleModel,
		IDV:                  amountOrZero(row.IDV),
		SumInsured:           amountOrZero(row.SumInsured),
		MembersCovered:       intOrZero(row.MembersCovered),
		PlanType:             row.PlanType,
		SumAssured:           amountOrZero(row.SumAssured),
		PolicyTerm:           intOrZero(row.PolicyTerm),
		PremiumPaymentTerm:   intOrZero(row.PremiumPaymentTerm),
		Status:               model.ParsePolicyStatus(row.PolicyStatus),
		AgentCode:            row.AgentCode,
		Reference:            row.Reference,
	}
}

// VehicleNumber uppercases a registration and drops spaces and punctuation,
// so "mh-12 ab 1234" becomes "MH12AB1234".
func VehicleNumber(raw string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(raw), "")
}

func amountOrZero(raw string) float64 {
	v, ok := validation.ParseAmount(raw)
	if !ok {
		return 0
	}
	return v
}

func intOrZero(raw string) int {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	// spreadsheets often hand integers back as "3.0"
	v := amountOrZero(s)
	if math.IsNaN(v) || v < 0 || v > math.MaxInt32 {
		return 0
	}
	return int(v)
}
