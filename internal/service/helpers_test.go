package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"testing"
	"time"

	"github.com/noah-isme/certified-copy-api/internal/models"
	"github.com/noah-isme/certified-copy-api/internal/repository"
	appErrors "github.com/noah-isme/certified-copy-api/pkg/errors"
)

var (
	testNow     = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	staffUser   = models.UserInfo{Username: "staff", Role: models.RoleStaff, Name: "Priya Verma"}
	adminUser   = models.UserInfo{Username: "admin", Role: models.RoleAdmin, Name: "Amit Kumar"}
	citizenUser = models.UserInfo{Username: "citizen", Role: models.RoleCitizen, Name: "Rahul Sharma"}
)

func newTestStore(t *testing.T) *repository.ApplicationStore {
	t.Helper()
	seq := 0
	return repository.NewApplicationStore(repository.NewMemoryBackend(),
		repository.WithClock(func() time.Time { return testNow }),
		repository.WithIDGenerator(func(time.Time) string {
			seq++
			return fmt.Sprintf("CA%03d", seq)
		}),
	)
}

func seedApplication(t *testing.T, store *repository.ApplicationStore, username string) *models.Application {
	t.Helper()
	ref := "CIV/2024/" + username
	app, err := store.Create(context.Background(), models.ApplicationInput{
		ApplicantName:      "Applicant " + username,
		ApplicantUsername:  username,
		IdentificationType: models.IdentificationCaseNumber,
		CaseNumber:         &ref,
		CaseType:           "civil",
		CourtName:          "District Court, Delhi",
		CopyTypes:          []string{"Court Order"},
	})
	if err != nil {
		t.Fatalf("seed application: %v", err)
	}
	return app
}

type memoryCacheRepo struct {
	mu          sync.Mutex
	values      map[string][]byte
	invalidated []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{values: map[string][]byte{}}
}

func (r *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = raw
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, pattern)
	for key := range r.values {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.values, key)
		}
	}
	return nil
}

func (r *memoryCacheRepo) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.values))
	for key := range r.values {
		keys = append(keys, key)
	}
	return keys
}
