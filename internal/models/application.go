package models

import "time"

// ApplicationStatus captures workflow states for copy requests.
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
)

// Valid reports whether the status is one of the known workflow states.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// AllStatuses lists workflow states in display order.
var AllStatuses = []ApplicationStatus{StatusPending, StatusUnderReview, StatusApproved, StatusRejected}

// IdentificationType says which case reference the applicant supplied.
type IdentificationType string

const (
	IdentificationCaseNumber IdentificationType = "case_number"
	IdentificationFIRNumber  IdentificationType = "fir_number"
)

// Application is one certified copy request.
type Application struct {
	ID                 string             `json:"id"`
	ApplicantName      string             `json:"applicantName"`
	ApplicantUsername  string             `json:"applicantUsername"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	Address            string             `json:"address"`
	HasAdvocate        bool               `json:"hasAdvocate"`
	AdvocateName       string             `json:"advocateName"`
	AdvocateBarNumber  string             `json:"advocateBarNumber"`
	IdentificationType IdentificationType `json:"identificationType"`
	CaseNumber         *string            `json:"caseNumber"`
	FIRNumber          *string            `json:"firNumber"`
	CaseType           string             `json:"caseType"`
	District           string             `json:"district"`
	CourtName          string             `json:"courtName"`
	CopyTypes          []string           `json:"copyTypes"`
	Purpose            string             `json:"purpose"`
	AdditionalInfo     string             `json:"additionalInfo"`

	Status           ApplicationStatus `json:"status"`
	SubmittedDate    time.Time         `json:"submittedDate"`
	LastUpdated      time.Time         `json:"lastUpdated"`
	StaffRemarks     *string           `json:"staffRemarks"`
	UploadedDocument *string           `json:"uploadedDocument"`
	ProcessedBy      *string           `json:"processedBy"`
	ProcessedDate    *time.Time        `json:"processedDate"`
}

// CaseReference returns whichever of case number or FIR number is set.
func (a Application) CaseReference() string {
	if a.CaseNumber != nil {
		return *a.CaseNumber
	}
	if a.FIRNumber != nil {
		return *a.FIRNumber
	}
	return ""
}

// ApplicationInput carries the creation-time fields of an application.
type ApplicationInput struct {
	ApplicantName      string
	ApplicantUsername  string
	Email              string
	Phone              string
	Address            string
	HasAdvocate        bool
	AdvocateName       string
	AdvocateBarNumber  string
	IdentificationType IdentificationType
	CaseNumber         *string
	FIRNumber          *string
	CaseType           string
	District           string
	CourtName          string
	CopyTypes          []string
	Purpose            string
	AdditionalInfo     string
}

// ApplicationPatch lists the workflow-owned fields an update may set. Nil fields are left untouched.
type ApplicationPatch struct {
	Status           *ApplicationStatus
	StaffRemarks     *string
	UploadedDocument *string
	ProcessedBy      *string
	ProcessedDate    *time.Time
}

// ApplicationFilter constrains listing queries. Empty fields match everything.
type ApplicationFilter struct {
	ApplicantUsername string
	Statuses          []ApplicationStatus
}

// Matches reports whether the application satisfies the filter.
func (f ApplicationFilter) Matches(app Application) bool {
	if f.ApplicantUsername != "" && app.ApplicantUsername != f.ApplicantUsername {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, status := range f.Statuses {
		if app.Status == status {
			return true
		}
	}
	return false
}
