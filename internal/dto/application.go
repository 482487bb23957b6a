package dto

import "github.com/noah-isme/certified-copy-api/internal/models"

// SubmitApplicationRequest is the citizen submission payload.
type SubmitApplicationRequest struct {
	ApplicantName      string                    `json:"applicantName" validate:"required,max=200"`
	Email              string                    `json:"email" validate:"required,email"`
	Phone              string                    `json:"phone" validate:"required,min=7,max=20"`
	Address            string                    `json:"address" validate:"required,max=500"`
	HasAdvocate        bool                      `json:"hasAdvocate"`
	AdvocateName       string                    `json:"advocateName" validate:"required_if=HasAdvocate true,max=200"`
	AdvocateBarNumber  string                    `json:"advocateBarNumber" validate:"required_if=HasAdvocate true,max=100"`
	IdentificationType models.IdentificationType `json:"identificationType" validate:"required,oneof=case_number fir_number"`
	CaseNumber         *string                   `json:"caseNumber"`
	FIRNumber          *string                   `json:"firNumber"`
	CaseType           string                    `json:"caseType" validate:"required"`
	District           string                    `json:"district" validate:"required"`
	CourtName          string                    `json:"courtName" validate:"required"`
	CopyTypes          []string                  `json:"copyTypes" validate:"required,min=1,dive,required"`
	Purpose            string                    `json:"purpose" validate:"required,max=1000"`
	AdditionalInfo     string                    `json:"additionalInfo" validate:"max=2000"`
}

// ApplicationListQuery narrows application listings.
type ApplicationListQuery struct {
	Statuses []models.ApplicationStatus
	Sort     string
}

// Sort orders understood by ApplicationListQuery.
const (
	SortInsertion       = ""
	SortSubmittedAsc    = "submitted"
	SortSubmittedDesc   = "-submitted"
	SortLastUpdatedDesc = "-lastUpdated"
)

// ApproveRequest carries the staff approval decision.
type ApproveRequest struct {
	Document string `json:"document"`
	Remarks  string `json:"remarks"`
}

// RejectRequest carries the staff rejection decision.
type RejectRequest struct {
	Remarks string `json:"remarks"`
}

// DocumentUploadResponse identifies a stored certified copy.
type DocumentUploadResponse struct {
	Reference   string `json:"reference"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// DocumentLinkResponse is a time-limited download link for an approved copy.
type DocumentLinkResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
}

// ImportSummary reports the outcome of a browser dump import.
type ImportSummary struct {
	Applications int               `json:"applications"`
	Statistics   models.Statistics `json:"statistics"`
}
