package validation

import (
	"testing"

	"github.com/nimasrn/policy-desk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow() Row {
	return Row{
		CustomerName:     "Ravi Kumar",
		MobileNumber:     "9876543210",
		InsuranceType:    "VehicleInsurance",
		InsuranceCompany: "ICICI Lombard",
		PolicyNumber:     "pol-001",
		PolicyStartDate:  "01/04/2024",
		PolicyEndDate:    "31/03/2025",
		PremiumAmount:    "12,500.50",
	}
}

func fields(errs []model.ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateRow_Valid(t *testing.T) {
	assert.Empty(t, ValidateRow(validRow(), 2))

	row := validRow()
	row.MobileNumber = ""
	row.PremiumAmount = ""
	row.InsuranceType = "healthinsurance"
	row.PolicyStartDate = 45383.0 // 2024-04-01
	assert.Empty(t, ValidateRow(row, 2))
}

func TestValidateRow_RequiredFields(t *testing.T) {
	errs := ValidateRow(Row{}, 7)

	require.Len(t, errs, 6)
	assert.Equal(t, []string{
		ColCustomerName, ColInsuranceType, ColInsuranceCompany,
		ColPolicyNumber, ColPolicyStartDate, ColPolicyEndDate,
	}, fields(errs))
	for _, e := range errs {
		assert.Equal(t, 7, e.Row)
		assert.Equal(t, e.Field+" is required", e.Message)
	}
}

func TestValidateRow_ReportsEveryViolation(t *testing.T) {
	row := validRow()
	row.CustomerName = "   "
	row.MobileNumber = "12345"
	row.InsuranceType = "Travel"
	row.PolicyStartDate = "31/02/2024"
	row.PremiumAmount = "-10"
	row.CommissionPercentage = "abc"

	errs := ValidateRow(row, 3)

	require.Len(t, errs, 6)
	assert.Equal(t, []model.ValidationError{
		{Row: 3, Field: ColCustomerName, Message: "Customer Name is required"},
		{Row: 3, Field: ColMobileNumber, Message: MsgMobileDigits},
		{Row: 3, Field: ColInsuranceType, Message: MsgInsuranceType},
		{Row: 3, Field: ColPolicyStartDate, Message: MsgInvalidDate},
		{Row: 3, Field: ColPremiumAmount, Message: MsgNonNegativeValue},
		{Row: 3, Field: ColCommissionPercentage, Message: MsgNonNegativeValue},
	}, errs)
}

func TestValidateRow_EndMustFollowStart(t *testing.T) {
	row := validRow()
	row.PolicyStartDate = "2024-05-10"
	row.PolicyEndDate = "10-05-2024"

	errs := ValidateRow(row, 3)
	require.Len(t, errs, 1)
	assert.Equal(t, model.ValidationError{Row: 3, Field: ColPolicyEndDate, Message: MsgEndAfterStart}, errs[0])

	row.PolicyEndDate = "01/05/2024"
	errs = ValidateRow(row, 3)
	require.Len(t, errs, 1)
	assert.Equal(t, ColPolicyEndDate, errs[0].Field)
}

func TestValidateRow_NoCrossCheckWhenDateInvalid(t *testing.T) {
	row := validRow()
	row.PolicyEndDate = "soon"

	errs := ValidateRow(row, 4)
	require.Len(t, errs, 1)
	assert.Equal(t, MsgInvalidDate, errs[0].Message)
}

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", "", true},
		{"  ", "", true},
		{"9876543210", "9876543210", true},
		{"98765 43210", "9876543210", true},
		{"+91 98765-43210", "9876543210", true},
		{"09876543210", "9876543210", true},
		{"919876543210", "9876543210", true},
		{"12345", "", false},
		{"+44 20 7946 0958 12", "", false},
		{"N/A", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeMobile(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	v, ok := ParseAmount("1,25,000")
	assert.True(t, ok)
	assert.Equal(t, 125000.0, v)

	v, ok = ParseAmount("₹ 999.5")
	assert.True(t, ok)
	assert.Equal(t, 999.5, v)

	v, ok = ParseAmount("")
	assert.True(t, ok)
	assert.Zero(t, v)

	for _, bad := range []string{"-1", "ten", "NaN", "Inf"} {
		_, ok = ParseAmount(bad)
		assert.False(t, ok, bad)
	}
}

func TestRowFromCells(t *testing.T) {
	row := RowFromCells(map[string]any{
		" customer name ":   "  Asha ",
		"MOBILE NUMBER":     float64(9876543210),
		"Policy Start Date": 45383.0,
		"Policy End Date":   " 31/03/2025 ",
		"Members Covered":   int64(4),
		"Unknown":           "ignored",
	})

	assert.Equal(t, "Asha", row.CustomerName)
	assert.Equal(t, "9876543210", row.MobileNumber)
	assert.Equal(t, 45383.0, row.PolicyStartDate)
	assert.Equal(t, "31/03/2025", row.PolicyEndDate)
	assert.Equal(t, "4", row.MembersCovered)
	assert.Nil(t, RowFromCells(nil).PolicyStartDate)
}
