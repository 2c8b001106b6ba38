// Package validation checks one import row against the policy business rules.
package validation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/internal/model"
)

const (
	MsgMobileDigits     = "Must be 10 digits if provided"
	MsgInsuranceType    = "Must be one of: VehicleInsurance, HealthInsurance, LifeInsurance, Other"
	MsgInvalidDate      = "Invalid date format"
	MsgEndAfterStart    = "End date must be after start date"
	MsgNonNegativeValue = "Must be a non-negative number"
)

var nonDigit = regexp.MustCompile(`\D`)

// ValidateRow evaluates every rule and reports each violation separately, so
// a row breaking three rules yields three errors. rowNum is stamped on each
// error unchanged.
func ValidateRow(row Row, rowNum int) []model.ValidationError {
	var errs []model.ValidationError
	add := func(field, msg string) {
		errs = append(errs, model.ValidationError{Row: rowNum, Field: field, Message: msg})
	}

	if row.CustomerName == "" {
		add(ColCustomerName, required(ColCustomerName))
	}

	if _, ok := NormalizeMobile(row.MobileNumber); !ok {
		add(ColMobileNumber, MsgMobileDigits)
	}

	if row.InsuranceType == "" {
		add(ColInsuranceType, required(ColInsuranceType))
	} else if _, ok := model.ParseInsuranceType(row.InsuranceType); !ok {
		add(ColInsuranceType, MsgInsuranceType)
	}

	if row.InsuranceCompany == "" {
		add(ColInsuranceCompany, required(ColInsuranceCompany))
	}

	if row.PolicyNumber == "" {
		add(ColPolicyNumber, required(ColPolicyNumber))
	}

	start, startOK := checkDate(row.PolicyStartDate, ColPolicyStartDate, add)
	end, endOK := checkDate(row.PolicyEndDate, ColPolicyEndDate, add)
	if startOK && endOK && !end.After(start) {
		add(ColPolicyEndDate, MsgEndAfterStart)
	}

	if _, ok := ParseAmount(row.PremiumAmount); !ok {
		add(ColPremiumAmount, MsgNonNegativeValue)
	}
	if _, ok := ParseAmount(row.CommissionPercentage); !ok {
		add(ColCommissionPercentage, MsgNonNegativeValue)
	}

	return errs
}

func required(col string) string {
	return col + " is required"
}

func checkDate(v any, col string, add func(field, msg string)) (time.Time, bool) {
	if isBlank(v) {
		add(col, required(col))
		return time.Time{}, false
	}
	t, ok := dates.ParseCell(v)
	if !ok {
		add(col, MsgInvalidDate)
	}
	return t, ok
}

func isBlank(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

// NormalizeMobile strips formatting from a contact number. Blank input is
// valid and yields "". A 12-digit number with the 91 country code, or an
// 11-digit number with a trunk 0, is reduced to its 10-digit subscriber part.
func NormalizeMobile(raw string) (string, bool) {
	if strings.TrimSpace(raw) == "" {
		return "", true
	}
	digits := nonDigit.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", false
	}
	return digits, true
}

// ParseAmount reads an optional non-negative number. Blank input is valid and
// yields 0. Thousands separators and a leading rupee sign are tolerated.
func ParseAmount(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, true
	}
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
