package audit

// Taxpayer is identified by its TIN. It is read-only from this repository's
// perspective except for fixture seeding.
type Taxpayer struct {
	TIN              string `json:"tin" yaml:"tin"`
	Name             string `json:"name" yaml:"name"`
	Region           string `json:"region" yaml:"region"`
	Sector           string `json:"sector" yaml:"sector"`
	ComplianceStatus string `json:"status" yaml:"status"`
}

// StatusCompliant is the ComplianceStatus of a taxpayer in good standing.
const StatusCompliant = "Compliant"

// ITReturn is an income-tax filing.
type ITReturn struct {
	ReturnID    string  `json:"return_id" yaml:"id"`
	TaxYear     string  `json:"year" yaml:"year"`
	FiledDate   string  `json:"filed_date,omitempty" yaml:"filed_date"`
	TotalIncome float64 `json:"total_income" yaml:"total_income"`
}

// EFRISReturn is an electronic fiscal receipting (sales/VAT) filing.
type EFRISReturn struct {
	ReturnID   string  `json:"return_id" yaml:"id"`
	Period     string  `json:"period" yaml:"period"`
	TotalSales float64 `json:"total_sales" yaml:"total_sales"`
	VATAmount  float64 `json:"vat" yaml:"vat"`
}

// Auditor performs audit tasks.
type Auditor struct {
	ID            string `json:"auditor_id" yaml:"id"`
	Name          string `json:"auditor_name" yaml:"name"`
	Email         string `json:"email,omitempty" yaml:"email"`
	Phone         string `json:"phone,omitempty" yaml:"phone"`
	Region        string `json:"region,omitempty" yaml:"region"`
	AssignedTasks int    `json:"assigned_tasks" yaml:"-"`
	InProgress    int    `json:"in_progress" yaml:"-"`
}

// Capacity tiers for auditor workload.
const (
	CapacityFull      = "Full"
	CapacityMedium    = "Medium"
	CapacityAvailable = "Available"
)

// Capacity classifies the auditor's current workload.
func (a Auditor) Capacity() string {
	switch {
	case a.AssignedTasks >= 5:
		return CapacityFull
	case a.AssignedTasks >= 3:
		return CapacityMedium
	default:
		return CapacityAvailable
	}
}
