package service

import (
	"fmt"
	"strings"

	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

// ReviewAction names a staff step in the application workflow.
type ReviewAction string

const (
	ActionStartReview ReviewAction = "start_review"
	ActionRelease     ReviewAction = "release"
	ActionApprove     ReviewAction = "approve"
	ActionReject      ReviewAction = "reject"
)

// DefaultApprovalRemarks is recorded when an approval carries no remarks.
const DefaultApprovalRemarks = "Application approved"

type transition struct {
	from []models.ApplicationStatus
	to   models.ApplicationStatus
}

var transitions = map[ReviewAction]transition{
	ActionStartReview: {from: []models.ApplicationStatus{models.StatusPending}, to: models.StatusUnderReview},
	ActionRelease:     {from: []models.ApplicationStatus{models.StatusUnderReview}, to: models.StatusPending},
	ActionApprove:     {from: []models.ApplicationStatus{models.StatusPending, models.StatusUnderReview}, to: models.StatusApproved},
	ActionReject:      {from: []models.ApplicationStatus{models.StatusPending, models.StatusUnderReview}, to: models.StatusRejected},
}

// NextStatus returns the status reached by applying action to current.
// Decided applications fail with ErrFinalized; other illegal moves with ErrInvalidTransition.
func NextStatus(current models.ApplicationStatus, action ReviewAction) (models.ApplicationStatus, error) {
	t, ok := transitions[action]
	if !ok {
		return "", appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("unknown action %q", action))
	}
	if current.Terminal() {
		return "", appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("application is already %s", current))
	}
	for _, from := range t.from {
		if current == from {
			return t.to, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot %s an application that is %s", strings.ReplaceAll(string(action), "_", " "), current))
}

// Decision is a validated approve or reject outcome.
type Decision struct {
	Status   models.ApplicationStatus
	Remarks  string
	Document string
}

// DecideApproval validates an approval. A document reference is mandatory.
func DecideApproval(document, remarks string) (Decision, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return Decision{}, appErrors.ErrMissingDocument
	}
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		remarks = DefaultApprovalRemarks
	}
	return Decision{Status: models.StatusApproved, Remarks: remarks, Document: document}, nil
}

// DecideRejection validates a rejection. Remarks are mandatory.
func DecideRejection(remarks string) (Decision, error) {
	remarks = strings.TrimSpace(remarks)
	if remarks == "" {
		return Decision{}, appErrors.ErrMissingRemarks
	}
	return Decision{Status: models.StatusRejected, Remarks: remarks}, nil
}

// ValidateIdentification checks that exactly one case reference is present and that
// it matches the declared identification type.
func ValidateIdentification(kind models.IdentificationType, caseNumber, firNumber *string) error {
	hasCase := caseNumber != nil && strings.TrimSpace(*caseNumber) != ""
	hasFIR := firNumber != nil && strings.TrimSpace(*firNumber) != ""

	switch {
	case hasCase && hasFIR:
		return appErrors.Clone(appErrors.ErrInvalidIdentification, "provide either caseNumber or firNumber, not both")
	case kind == models.IdentificationCaseNumber && hasCase:
		return nil
	case kind == models.IdentificationFIRNumber && hasFIR:
		return nil
	case kind != models.IdentificationCaseNumber && kind != models.IdentificationFIRNumber:
		return appErrors.Clone(appErrors.ErrInvalidIdentification, "identificationType must be case_number or fir_number")
	default:
		return appErrors.Clone(appErrors.ErrInvalidIdentification, fmt.Sprintf("%s requires the matching reference", kind))
	}
}
