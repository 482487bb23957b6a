package models

// CaseTypeOption is a selectable case type with its display label.
type CaseTypeOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// DistrictCourts lists the courts of one district.
type DistrictCourts struct {
	District string   `json:"district"`
	Courts   []string `json:"courts"`
}

// ReferenceData feeds the submission form.
type ReferenceData struct {
	CaseTypes []CaseTypeOption `json:"caseTypes"`
	CopyTypes []string         `json:"copyTypes"`
	Districts []DistrictCourts `json:"districts"`
}
