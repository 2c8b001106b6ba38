package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Template column names. Error fields use these names so users can find the
// offending cell.
const (
	ColCustomerName         = "Customer Name"
	ColMobileNumber         = "Mobile Number"
	ColInsuranceType        = "Insurance Type"
	ColInsuranceCompany     = "Insurance Company"
	ColPolicyNumber         = "Policy Number"
	ColPolicyStartDate      = "Policy Start Date"
	ColPolicyEndDate        = "Policy End Date"
	ColPremiumAmount        = "Premium Amount"
	ColPremiumFrequency     = "Premium Frequency"
	ColCommissionPercentage = "Commission Percentage"
	ColPolicyStatus         = "Policy Status"
	ColVehicleNumber        = "Vehicle Number"
	ColVehicleMake          = "Vehicle Make"
	ColVehicleModel         = "Vehicle Model"
	ColIDV                  = "IDV"
	ColSumInsured           = "Sum Insured"
	ColMembersCovered       = "Members Covered"
	ColPlanType             = "Plan Type"
	ColSumAssured           = "Sum Assured"
	ColPolicyTerm           = "Policy Term"
	ColPremiumPaymentTerm   = "Premium Payment Term"
	ColAgentCode            = "Agent Code"
	ColReference            = "Reference"
)

// Columns is the template header order, used when generating a blank template.
var Columns = []string{
	ColCustomerName, ColMobileNumber, ColInsuranceType, ColInsuranceCompany, ColPolicyNumber,
	ColPolicyStartDate, ColPolicyEndDate, ColPremiumAmount, ColPremiumFrequency, ColCommissionPercentage,
	ColPolicyStatus, ColVehicleNumber, ColVehicleMake, ColVehicleModel, ColIDV,
	ColSumInsured, ColMembersCovered, ColPlanType, ColSumAssured, ColPolicyTerm,
	ColPremiumPaymentTerm, ColAgentCode, ColReference,
}

// Row is one spreadsheet line after the reader has resolved cells. Text
// columns are trimmed strings. Date columns keep the raw cell value because a
// spreadsheet may hand back a serial number, a string or a time.
type Row struct {
	CustomerName         string
	MobileNumber         string
	InsuranceType        string
	InsuranceCompany     string
	PolicyNumber         string
	PolicyStartDate      any
	PolicyEndDate        any
	PremiumAmount        string
	PremiumFrequency     string
	CommissionPercentage string
	PolicyStatus         string
	VehicleNumber        string
	VehicleMake          string
	VehicleModel         string
	IDV                  string
	SumInsured           string
	MembersCovered       string
	PlanType             string
	SumAssured           string
	PolicyTerm           string
	PremiumPaymentTerm   string
	AgentCode            string
	Reference            string
}

// RowFromCells maps a header-keyed cell set onto a Row. Header matching is
// case-insensitive and ignores surrounding whitespace; unknown columns are
// ignored.
func RowFromCells(cells map[string]any) Row {
	byKey := make(map[string]any, len(cells))
	for k, v := range cells {
		byKey[headerKey(k)] = v
	}
	text := func(col string) string {
		return cellText(byKey[headerKey(col)])
	}
	raw := func(col string) any {
		v := byKey[headerKey(col)]
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
		return v
	}

	return Row{
		CustomerName:         text(ColCustomerName),
		MobileNumber:         text(ColMobileNumber),
		InsuranceType:        text(ColInsuranceType),
		InsuranceCompany:     text(ColInsuranceCompany),
		PolicyNumber:         text(ColPolicyNumber),
		PolicyStartDate:      raw(ColPolicyStartDate),
		PolicyEndDate:        raw(ColPolicyEndDate),
		PremiumAmount:        text(ColPremiumAmount),
		PremiumFrequency:     text(ColPremiumFrequency),
		CommissionPercentage: text(ColCommissionPercentage),
		PolicyStatus:         text(ColPolicyStatus),
		VehicleNumber:        text(ColVehicleNumber),
		VehicleMake:          text(ColVehicleMake),
		VehicleModel:         text(ColVehicleModel),
		IDV:                  text(ColIDV),
		SumInsured:           text(ColSumInsured),
		MembersCovered:       text(ColMembersCovered),
		PlanType:             text(ColPlanType),
		SumAssured:           text(ColSumAssured),
		PolicyTerm:           text(ColPolicyTerm),
		PremiumPaymentTerm:   text(ColPremiumPaymentTerm),
		AgentCode:            text(ColAgentCode),
		Reference:            text(ColReference),
	}
}

func headerKey(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func cellText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("02/01/2006")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
