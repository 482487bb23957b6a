package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/repository"
	"github.com/noah-isme/certified-copy-api/internal/service"
	"github.com/noah-isme/certified-copy-api/pkg/storage"
)

const apiPrefix = "/api/v1"

var samplePDF = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n%%EOF\n")

type portal struct {
	t       *testing.T
	router  *gin.Engine
	store   *repository.ApplicationStore
	metrics *service.MetricsService
}

func newPortal(t *testing.T) *portal {
	t.Helper()
	gin.SetMode(gin.TestMode)

	metrics := service.NewMetricsService()
	store := repository.NewApplicationStore(repository.NewMemoryBackend(), repository.WithObserver(metrics))
	reference := service.NewReferenceService()

	users, err := service.DemoUsers()
	require.NoError(t, err)
	auth := service.NewAuthService(users, nil, nil, service.AuthConfig{AccessTokenSecret: "route-secret"})

	applications := service.NewApplicationService(service.ApplicationServiceParams{Store: store, Reference: reference, Metrics: metrics})
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	documents := service.NewDocumentService(files, storage.NewSignedURLSigner("download-secret", time.Minute), applications, nil,
		service.DocumentServiceConfig{APIPrefix: apiPrefix})
	review := service.NewReviewService(service.ReviewServiceParams{Store: store, Documents: documents, Metrics: metrics})
	dashboard := service.NewDashboardService(service.DashboardServiceParams{Store: store})

	router := gin.New()
	RegisterRoutes(router.Group(apiPrefix), Handlers{
		Auth:         NewAuthHandler(auth),
		Applications: NewApplicationHandler(applications),
		Review:       NewReviewHandler(review),
		Documents:    NewDocumentHandler(documents),
		Dashboard:    NewDashboardHandler(dashboard),
		Exports:      NewExportHandler(service.NewExportService(store, reference, nil)),
		Reference:    NewReferenceHandler(reference),
		Metrics:      NewMetricsHandler(metrics, store, "memory"),
	}, auth, zap.NewNop())

	return &portal{t: t, router: router, store: store, metrics: metrics}
}

func (p *portal) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	p.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(p.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, apiPrefix+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	return rec
}

func (p *portal) login(username string, role models.UserRole) string {
	p.t.Helper()
	rec := p.do(http.MethodPost, "/auth/login", "", models.LoginRequest{Username: username, Password: service.DemoPassword, Role: role})
	require.Equal(p.t, http.StatusOK, rec.Code, rec.Body.String())
	var env struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(p.t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data.AccessToken
}

func (p *portal) upload(token string, content []byte) string {
	p.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "order.pdf")
	require.NoError(p.t, err)
	_, err = part.Write(content)
	require.NoError(p.t, err)
	require.NoError(p.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, apiPrefix+"/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)
	require.Equal(p.t, http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Data struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	require.NoError(p.t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data.Reference
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	env := struct {
		Data interface{} `json:"data"`
	}{Data: dest}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
}

func submission() map[string]interface{} {
	return map[string]interface{}{
		"applicantName":      "Amit Singh",
		"email":              "amit.singh@example.com",
		"phone":              "9123456789",
		"address":            "456, Sector 15, Delhi - 110001",
		"identificationType": "case_number",
		"caseNumber":         "CIV/2024/045",
		"caseType":           "civil",
		"district":           "Delhi",
		"courtName":          "District Court, Delhi",
		"copyTypes":          []string{"Court Order"},
		"purpose":            "Personal records",
	}
}

func TestPortalWorkflow(t *testing.T) {
	p := newPortal(t)
	citizen := p.login("citizen", models.RoleCitizen)
	staff := p.login("staff", models.RoleStaff)
	admin := p.login("admin", models.RoleAdmin)

	rec := p.do(http.MethodPost, "/applications", citizen, submission())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app models.Application
	decodeData(t, rec, &app)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, "citizen", app.ApplicantUsername)

	rec = p.do(http.MethodGet, "/applications?status=pending,under_review&sort=submitted", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var queue []models.Application
	decodeData(t, rec, &queue)
	require.Len(t, queue, 1)

	rec = p.do(http.MethodPost, "/applications/"+app.ID+"/start-review", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = p.do(http.MethodPost, "/applications/"+app.ID+"/approve", staff, map[string]string{"document": "never-uploaded.pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_DOCUMENT")

	reference := p.upload(staff, samplePDF)
	rec = p.do(http.MethodPost, "/applications/"+app.ID+"/approve", staff, map[string]string{"document": reference})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, rec, &app)
	assert.Equal(t, models.StatusApproved, app.Status)
	require.NotNil(t, app.StaffRemarks)
	assert.Equal(t, service.DefaultApprovalRemarks, *app.StaffRemarks)

	rec = p.do(http.MethodPost, "/applications/"+app.ID+"/reject", staff, map[string]string{"remarks": "too late"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = p.do(http.MethodGet, "/applications/"+app.ID+"/document-link", citizen, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var link struct {
		URL string `json:"url"`
	}
	decodeData(t, rec, &link)
	parsed, err := url.Parse(link.URL)
	require.NoError(t, err)
	assert.Equal(t, apiPrefix+"/documents/download", parsed.Path)

	download := httptest.NewRecorder()
	p.router.ServeHTTP(download, httptest.NewRequest(http.MethodGet, link.URL, nil))
	require.Equal(t, http.StatusOK, download.Code)
	assert.Equal(t, samplePDF, download.Body.Bytes())
	assert.Contains(t, download.Header().Get("Content-Disposition"), app.ID+".pdf")

	rec = p.do(http.MethodGet, "/dashboard/admin", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"approvalRate":100`)
	assert.Contains(t, rec.Body.String(), `"cache_hit":false`)

	rec = p.do(http.MethodGet, "/exports/applications?format=csv", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), app.ID)

	rec = p.do(http.MethodDelete, "/applications/"+app.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = p.do(http.MethodGet, "/stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.Statistics
	decodeData(t, rec, &stats)
	assert.Equal(t, 1, stats.TotalApplications)
	assert.Equal(t, 1, stats.TotalApproved)

	assert.Equal(t, uint64(1), p.metrics.Snapshot().Decisions["approved"])
}

func TestPortalAccessControl(t *testing.T) {
	p := newPortal(t)
	citizen := p.login("citizen", models.RoleCitizen)
	staff := p.login("staff", models.RoleStaff)

	rec := p.do(http.MethodPost, "/auth/login", "", models.LoginRequest{Username: "citizen", Password: service.DemoPassword, Role: models.RoleStaff})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, p.do(http.MethodGet, "/applications", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, p.do(http.MethodPost, "/applications/CA1/approve", citizen, nil).Code)
	assert.Equal(t, http.StatusForbidden, p.do(http.MethodGet, "/dashboard/admin", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, p.do(http.MethodDelete, "/applications/CA1", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, p.do(http.MethodPost, "/applications", staff, submission()).Code)
	assert.Equal(t, http.StatusNotFound, p.do(http.MethodPost, "/applications/CA1/start-review", staff, nil).Code)

	rec = p.do(http.MethodGet, "/auth/me", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Priya Verma")

	rec = p.do(http.MethodGet, "/reference", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Judgment Copy")

	download := httptest.NewRecorder()
	p.router.ServeHTTP(download, httptest.NewRequest(http.MethodGet, apiPrefix+"/documents/download?token=forged", nil))
	assert.Equal(t, http.StatusForbidden, download.Code)
}

func TestPortalRejectRequiresRemarks(t *testing.T) {
	p := newPortal(t)
	citizen := p.login("citizen", models.RoleCitizen)
	staff := p.login("staff", models.RoleStaff)

	rec := p.do(http.MethodPost, "/applications", citizen, submission())
	require.Equal(t, http.StatusCreated, rec.Code)
	var app models.Application
	decodeData(t, rec, &app)

	rec = p.do(http.MethodPost, "/applications/"+app.ID+"/reject", staff, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_REMARKS")

	rec = p.do(http.MethodPost, "/applications/"+app.ID+"/reject", staff, map[string]string{"remarks": "Case number not found"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = p.do(http.MethodGet, "/applications/"+app.ID+"/document-link", citizen, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stats, err := p.store.Stats(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalRejected)
}
