package model

import (
	"strings"
	"time"
)

type InsuranceType string

const (
	VehicleInsurance InsuranceType = "VehicleInsurance"
	HealthInsurance  InsuranceType = "HealthInsurance"
	LifeInsurance    InsuranceType = "LifeInsurance"
	OtherInsurance   InsuranceType = "Other"
)

var InsuranceTypes = []InsuranceType{VehicleInsurance, HealthInsurance, LifeInsurance, OtherInsurance}

// ParseInsuranceType matches case-insensitively against the known types.
func ParseInsuranceType(raw string) (InsuranceType, bool) {
	s := strings.TrimSpace(raw)
	for _, t := range InsuranceTypes {
		if strings.EqualFold(s, string(t)) {
			return t, true
		}
	}
	return "", false
}

type PolicyStatus string

const (
	PolicyActive  PolicyStatus = "Active"
	PolicyExpired PolicyStatus = "Expired"
	PolicyFresh   PolicyStatus = "Fresh"
)

// ParsePolicyStatus falls back to Active for blank or unknown values.
func ParsePolicyStatus(raw string) PolicyStatus {
	s := strings.TrimSpace(raw)
	for _, st := range []PolicyStatus{PolicyActive, PolicyExpired, PolicyFresh} {
		if strings.EqualFold(s, string(st)) {
			return st
		}
	}
	return PolicyActive
}

// Policy is one insurance policy owned by an agent. ActiveDate and ExpiryDate
// are calendar dates held at 00:00 UTC.
type Policy struct {
	ID                    int64         `json:"id"`
	OwnerID               string        `json:"ownerId"`
	PolicyNumber          string        `json:"policyNumber"`
	ClientName            string        `json:"clientName"`
	ContactNumber         string        `json:"contactNumber"`
	InsuranceType         InsuranceType `json:"insuranceType"`
	ActiveDate            time.Time     `json:"activeDate"`
	ExpiryDate            time.Time     `json:"expiryDate"`
	NetPremium            float64       `json:"netPremium"`
	PremiumFrequency      string        `json:"premiumFrequency,omitempty"`
	CommissionPercentage  float64       `json:"commissionPercentage"`
	CompanyName           string        `json:"companyName"`
	VehicleNumber         string        `json:"vehicleNumber,omitempty"`
	VehicleMake           string        `json:"vehicleMake,omitempty"`
	VehicleModel          string        `json:"vehicleModel,omitempty"`
	IDV                   float64       `json:"idv,omitempty"`
	SumInsured            float64       `json:"sumInsured,omitempty"`
	MembersCovered        int           `json:"membersCovered,omitempty"`
	PlanType              string        `json:"planType,omitempty"`
	SumAssured            float64       `json:"sumAssured,omitempty"`
	PolicyTerm            int           `json:"policyTerm,omitempty"`
	PremiumPaymentTerm    int           `json:"premiumPaymentTerm,omitempty"`
	Status                PolicyStatus  `json:"status"`
	AgentCode             string        `json:"agentCode,omitempty"`
	Reference             string        `json:"reference,omitempty"`
	WhatsappReminderCount int           `json:"whatsappReminderCount"`
	CreatedAt             time.Time     `json:"createdAt"`
	UpdatedAt             time.Time     `json:"updatedAt"`
}

func (p *Policy) HasContact() bool {
	return p.ContactNumber != ""
}
