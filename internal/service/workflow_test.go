package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

func TestNextStatus(t *testing.T) {
	cases := []struct {
		name    string
		current models.ApplicationStatus
		action  ReviewAction
		want    models.ApplicationStatus
		err     error
	}{
		{"start review", models.StatusPending, ActionStartReview, models.StatusUnderReview, nil},
		{"release", models.StatusUnderReview, ActionRelease, models.StatusPending, nil},
		{"approve pending", models.StatusPending, ActionApprove, models.StatusApproved, nil},
		{"approve under review", models.StatusUnderReview, ActionApprove, models.StatusApproved, nil},
		{"reject pending", models.StatusPending, ActionReject, models.StatusRejected, nil},
		{"reject under review", models.StatusUnderReview, ActionReject, models.StatusRejected, nil},
		{"review twice", models.StatusUnderReview, ActionStartReview, "", appErrors.ErrInvalidTransition},
		{"release pending", models.StatusPending, ActionRelease, "", appErrors.ErrInvalidTransition},
		{"approve approved", models.StatusApproved, ActionApprove, "", appErrors.ErrFinalized},
		{"reject approved", models.StatusApproved, ActionReject, "", appErrors.ErrFinalized},
		{"reopen rejected", models.StatusRejected, ActionStartReview, "", appErrors.ErrFinalized},
		{"unknown action", models.StatusPending, ReviewAction("archive"), "", appErrors.ErrInvalidTransition},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextStatus(tc.current, tc.action)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecideApproval(t *testing.T) {
	_, err := DecideApproval("  ", "ok")
	assert.ErrorIs(t, err, appErrors.ErrMissingDocument)

	decision, err := DecideApproval("copy.pdf", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultApprovalRemarks, decision.Remarks)
	assert.Equal(t, models.StatusApproved, decision.Status)

	decision, err = DecideApproval("copy.pdf", " verified ")
	require.NoError(t, err)
	assert.Equal(t, "verified", decision.Remarks)
}

func TestDecideRejection(t *testing.T) {
	_, err := DecideRejection("\t")
	assert.ErrorIs(t, err, appErrors.ErrMissingRemarks)

	decision, err := DecideRejection("records sealed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, decision.Status)
	assert.Empty(t, decision.Document)
}

func TestValidateIdentification(t *testing.T) {
	caseNo, fir, blank := "CIV/1", "FIR/2", " "
	cases := []struct {
		name string
		kind models.IdentificationType
		cn   *string
		fn   *string
		ok   bool
	}{
		{"case number", models.IdentificationCaseNumber, &caseNo, nil, true},
		{"fir number", models.IdentificationFIRNumber, nil, &fir, true},
		{"both", models.IdentificationCaseNumber, &caseNo, &fir, false},
		{"neither", models.IdentificationCaseNumber, nil, nil, false},
		{"blank", models.IdentificationFIRNumber, nil, &blank, false},
		{"mismatch", models.IdentificationFIRNumber, &caseNo, nil, false},
		{"unknown type", models.IdentificationType("passport"), &caseNo, nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateIdentification(tc.kind, tc.cn, tc.fn)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, appErrors.ErrInvalidIdentification)
		})
	}
}
