// Package fixtures builds policy uploads for tests and load runs.
package fixtures

import (
	"fmt"
	"strings"
	"time"

	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/internal/validation"
)

var UploadHeader = []string{
	validation.ColCustomerName,
	validation.ColMobileNumber,
	validation.ColInsuranceType,
	validation.ColInsuranceCompany,
	validation.ColPolicyNumber,
	validation.ColPolicyStartDate,
	validation.ColPolicyEndDate,
	validation.ColPremiumAmount,
	validation.ColVehicleNumber,
}

// PolicyRow is one line of an upload, in UploadHeader order.
type PolicyRow struct {
	Customer string
	Mobile   string
	Type     string
	Company  string
	Number   string
	Start    time.Time
	End      time.Time
	Premium  string
	Vehicle  string
}

func (r PolicyRow) fields() []string {
	return []string{
		r.Customer,
		r.Mobile,
		r.Type,
		r.Company,
		r.Number,
		dates.Format(r.Start),
		dates.Format(r.End),
		r.Premium,
		r.Vehicle,
	}
}

// ExpiringIn returns a valid vehicle policy that expires days after today.
func ExpiringIn(number, mobile string, today time.Time, days int) PolicyRow {
	end := today.AddDate(0, 0, days)
	return PolicyRow{
		Customer: "Client " + number,
		Mobile:   mobile,
		Type:     "VehicleInsurance",
		Company:  "icici lombard",
		Number:   number,
		Start:    end.AddDate(-1, 0, 1),
		End:      end,
		Premium:  "12,500",
		Vehicle:  "MH-12 AB 1234",
	}
}

// CSV renders rows as an upload with a header line. Fields never contain
// commas, so no quoting is needed.
func CSV(rows ...PolicyRow) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(UploadHeader, ","))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r.fields(), ","))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Batch generates n valid rows with expiries spread over the next 60 days.
func Batch(prefix string, n int, today time.Time) []PolicyRow {
	rows := make([]PolicyRow, n)
	for i := range rows {
		rows[i] = ExpiringIn(fmt.Sprintf("%s-%05d", prefix, i), fmt.Sprintf("98%08d", i), today, i%60)
	}
	return rows
}
