package dto

import (
	"time"

	"github.com/noah-isme/certified-copy-api/internal/models"
)

// StaffDashboardResponse summarises the review queue.
type StaffDashboardResponse struct {
	Pending        int `json:"pending"`
	UnderReview    int `json:"underReview"`
	ProcessedToday int `json:"processedToday"`
}

// AdminDashboardResponse captures the aggregated admin dashboard payload.
type AdminDashboardResponse struct {
	TotalApplications  int               `json:"totalApplications"`
	AwaitingDecision   int               `json:"awaitingDecision"`
	Approved           int               `json:"approved"`
	ProcessedToday     int               `json:"processedToday"`
	ApprovalRate       int               `json:"approvalRate"`
	StatusDistribution []StatusCount     `json:"statusDistribution"`
	RecentActivity     []RecentDecision  `json:"recentActivity"`
	Trend              []DailyCount      `json:"trend"`
	Statistics         models.Statistics `json:"statistics"`
	GeneratedAt        time.Time         `json:"generatedAt"`
}

// StatusCount is the number of live applications in one status.
type StatusCount struct {
	Status models.ApplicationStatus `json:"status"`
	Count  int                      `json:"count"`
}

// RecentDecision is one entry of the admin activity feed.
type RecentDecision struct {
	ID            string                   `json:"id"`
	ApplicantName string                   `json:"applicantName"`
	Status        models.ApplicationStatus `json:"status"`
	ProcessedBy   string                   `json:"processedBy"`
	ProcessedDate time.Time                `json:"processedDate"`
}

// DailyCount is a processed-per-day data point.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
