package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/certified-copy-api/internal/middleware"
	"github.com/noah-isme/certified-copy-api/internal/models"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
	"github.com/noah-isme/certified-copy-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	return claims
}

// currentUser writes a 401 and returns false when the request carries no claims.
func currentUser(c *gin.Context) (models.UserInfo, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.UserInfo{}, false
	}
	return claims.Info(), true
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func statusesFromQuery(c *gin.Context) []models.ApplicationStatus {
	values := splitCSV(c.Query("status"))
	statuses := make([]models.ApplicationStatus, 0, len(values))
	for _, v := range values {
		statuses = append(statuses, models.ApplicationStatus(strings.ToLower(v)))
	}
	return statuses
}
