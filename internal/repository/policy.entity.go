package repository

import (
	"time"

	"github.com/nimasrn/policy-desk/internal/model"
)

type PolicyEntity struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement;column:id"`
	OwnerID               string    `gorm:"column:owner_id;not null;uniqueIndex:idx_policies_owner_number,priority:1;index"`
	PolicyNumber          string    `gorm:"column:policy_number;not null;uniqueIndex:idx_policies_owner_number,priority:2"`
	ClientName            string    `gorm:"column:client_name;not null"`
	ContactNumber         string    `gorm:"column:contact_number;not null;default:''"`
	InsuranceType         string    `gorm:"column:insurance_type;not null"`
	ActiveDate            time.Time `gorm:"column:active_date;type:date;not null"`
	ExpiryDate            time.Time `gorm:"column:expiry_date;type:date;not null;index"`
	NetPremium            float64   `gorm:"column:net_premium;not null;default:0"`
	PremiumFrequency      string    `gorm:"column:premium_frequency"`
	CommissionPercentage  float64   `gorm:"column:commission_percentage;not null;default:0"`
	CompanyName           string    `gorm:"column:company_name;not null"`
	VehicleNumber         string    `gorm:"column:vehicle_number"`
	VehicleMake           string    `gorm:"column:vehicle_make"`
	VehicleModel          string    `gorm:"column:vehicle_model"`
	IDV                   float64   `gorm:"column:idv"`
	SumInsured            float64   `gorm:"column:sum_insured"`
	MembersCovered        int       `gorm:"column:members_covered"`
	PlanType              string    `gorm:"column:plan_type"`
	SumAssured            float64   `gorm:"column:sum_assured"`
	PolicyTerm            int       `gorm:"column:policy_term"`
	PremiumPaymentTerm    int       `gorm:"column:premium_payment_term"`
	Status                string    `gorm:"column:status;not null;default:'Active'"`
	AgentCode             string    `gorm:"column:agent_code"`
	Reference             string    `gorm:"column:reference"`
	WhatsappReminderCount int       `gorm:"column:whatsapp_reminder_count;not null;default:0"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (PolicyEntity) TableName() string {
	return "policies"
}

func toPolicyEntity(m *model.Policy) *PolicyEntity {
	if m == nil {
		return nil
	}
	return &PolicyEntity{
		ID:                    m.ID,
		OwnerID:               m.OwnerID,
		PolicyNumber:          m.PolicyNumber,
		ClientName:            m.ClientName,
		ContactNumber:         m.ContactNumber,
		InsuranceType:         string(m.InsuranceType),
		ActiveDate:            m.ActiveDate,
		ExpiryDate:            m.ExpiryDate,
		NetPremium:            m.NetPremium,
		PremiumFrequency:      m.PremiumFrequency,
		CommissionPercentage:  m.CommissionPercentage,
		CompanyName:           m.CompanyName,
		VehicleNumber:         m.VehicleNumber,
		VehicleMake:           m.VehicleMake,
		VehicleModel:          m.VehicleModel,
		IDV:                   m.IDV,
		SumInsured:            m.SumInsured,
		MembersCovered:        m.MembersCovered,
		PlanType:              m.PlanType,
		SumAssured:            m.SumAssured,
		PolicyTerm:            m.PolicyTerm,
		PremiumPaymentTerm:    m.PremiumPaymentTerm,
		Status:                string(m.Status),
		AgentCode:             m.AgentCode,
		Reference:             m.Reference,
		WhatsappReminderCount: m.WhatsappReminderCount,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func toPolicyModel(e *PolicyEntity) *model.Policy {
	if e == nil {
		return nil
	}
	return &model.Policy{
		ID:                    e.ID,
		OwnerID:               e.OwnerID,
		PolicyNumber:          e.PolicyNumber,
		ClientName:            e.ClientName,
		ContactNumber:         e.ContactNumber,
		InsuranceType:         model.InsuranceType(e.InsuranceType),
		ActiveDate:            e.ActiveDate.UTC(),
		ExpiryDate:            e.ExpiryDate.UTC(),
		NetPremium:            e.NetPremium,
		PremiumFrequency:      e.PremiumFrequency,
		CommissionPercentage:  e.CommissionPercentage,
		CompanyName:           e.CompanyName,
		VehicleNumber:         e.VehicleNumber,
		VehicleMake:           e.VehicleMake,
		VehicleModel:          e.VehicleModel,
		IDV:                   e.IDV,
		SumInsured:            e.SumInsured,
		MembersCovered:        e.MembersCovered,
		PlanType:              e.PlanType,
		SumAssured:            e.SumAssured,
		PolicyTerm:            e.PolicyTerm,
		PremiumPaymentTerm:    e.PremiumPaymentTerm,
		Status:                model.PolicyStatus(e.Status),
		AgentCode:             e.AgentCode,
		Reference:             e.Reference,
		WhatsappReminderCount: e.WhatsappReminderCount,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func toPolicyModels(entities []*PolicyEntity) []*model.Policy {
	if entities == nil {
		return nil
	}
	models := make([]*model.Policy, len(entities))
	for i, e := range entities {
		models[i] = toPolicyModel(e)
	}
	return models
}
