package reminder

import (
	"fmt"
	"strings"

	"github.com/nimasrn/policy-desk/internal/dates"
	"github.com/nimasrn/policy-desk/internal/model"
)

// RenderMessage builds the reminder text sent to the policy holder.
func RenderMessage(p *model.Policy, daysToExpiry int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dear %s, your %s policy %s", clientName(p), descriptor(p), p.PolicyNumber)
	if p.InsuranceType == model.VehicleInsurance && p.VehicleNumber != "" {
		fmt.Fprintf(&b, " (%s)", p.VehicleNumber)
	}
	fmt.Fprintf(&b, " expires on %s (%s remaining).", dates.Format(p.ExpiryDate), daysLabel(daysToExpiry))
	if p.CompanyName != "" {
		fmt.Fprintf(&b, " Insurer: %s.", p.CompanyName)
	}
	b.WriteString(" Please contact us to renew on time.")

	return b.String()
}

func clientName(p *model.Policy) string {
	if name := strings.TrimSpace(p.ClientName); name != "" {
		return name
	}
	return "Customer"
}

func descriptor(p *model.Policy) string {
	switch p.InsuranceType {
	case model.VehicleInsurance:
		if v := strings.TrimSpace(p.VehicleMake + " " + p.VehicleModel); v != "" {
			return v + " vehicle insurance"
		}
		return "vehicle insurance"
	case model.HealthInsurance:
		if plan := strings.TrimSpace(p.PlanType); plan != "" {
			return plan + " health insurance"
		}
		return "health insurance"
	case model.LifeInsurance:
		return "life insurance"
	default:
		return "insurance"
	}
}

func daysLabel(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
