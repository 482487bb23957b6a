package service

import (
	"strings"

	"github.com/noah-isme/certified-copy-api/internal/models"
)

var caseTypes = []models.CaseTypeOption{
	{Value: "civil", Label: "Civil Case"},
	{Value: "criminal", Label: "Criminal Case"},
	{Value: "family", Label: "Family Case"},
	{Value: "revenue", Label: "Revenue Case"},
	{Value: "labor", Label: "Labor Case"},
	{Value: "other", Label: "Other"},
}

var copyTypes = []string{
	"Judgment Copy",
	"Court Order",
	"Case Documents",
	"FIR Copy",
	"Charge Sheet",
	"Witness Statements",
	"Evidence Documents",
	"Other",
}

var districts = []models.DistrictCourts{
	{District: "Mumbai", Courts: []string{"High Court of Mumbai", "City Civil Court, Mumbai", "Metropolitan Magistrate Court, Mumbai"}},
	{District: "Delhi", Courts: []string{"High Court of Delhi", "District Court, Delhi", "Family Court, Delhi"}},
	{District: "Pune", Courts: []string{"District Court, Pune", "Family Court, Pune"}},
	{District: "Bengaluru", Courts: []string{"High Court of Karnataka", "City Civil Court, Bengaluru"}},
	{District: "Chennai", Courts: []string{"High Court of Madras", "City Civil Court, Chennai"}},
	{District: "Kolkata", Courts: []string{"High Court of Calcutta", "City Sessions Court, Kolkata"}},
}

// ReferenceService serves the fixed lookup lists used by the submission form.
type ReferenceService struct{}

// NewReferenceService constructs a ReferenceService.
func NewReferenceService() *ReferenceService {
	return &ReferenceService{}
}

// Data returns a copy of every lookup list.
func (s *ReferenceService) Data() models.ReferenceData {
	data := models.ReferenceData{
		CaseTypes: append([]models.CaseTypeOption(nil), caseTypes...),
		CopyTypes: append([]string(nil), copyTypes...),
		Districts: make([]models.DistrictCourts, len(districts)),
	}
	for i, d := range districts {
		data.Districts[i] = models.DistrictCourts{District: d.District, Courts: append([]string(nil), d.Courts...)}
	}
	return data
}

// CaseTypeLabel returns the display label of a case type, or the raw value when unknown.
func (s *ReferenceService) CaseTypeLabel(value string) string {
	for _, ct := range caseTypes {
		if ct.Value == value {
			return ct.Label
		}
	}
	return value
}

// ValidCaseType reports whether value is a known case type.
func (s *ReferenceService) ValidCaseType(value string) bool {
	for _, ct := range caseTypes {
		if ct.Value == value {
			return true
		}
	}
	return false
}

// ValidCopyType reports whether value is a known copy type.
func (s *ReferenceService) ValidCopyType(value string) bool {
	for _, ct := range copyTypes {
		if strings.EqualFold(ct, value) {
			return true
		}
	}
	return false
}
