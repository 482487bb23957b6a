package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/certified-copy-api/internal/models"
)

func strPtr(v string) *string { return &v }

func statusPtr(v models.ApplicationStatus) *models.ApplicationStatus { return &v }

type storeFixture struct {
	store   *ApplicationStore
	backend *MemoryBackend
	now     time.Time
}

func newStoreFixture(t *testing.T) *storeFixture {
	t.Helper()
	f := &storeFixture{
		backend: NewMemoryBackend(),
		now:     time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	seq := 0
	f.store = NewApplicationStore(f.backend,
		WithClock(func() time.Time { return f.now }),
		WithIDGenerator(func(time.Time) string {
			seq++
			return fmt.Sprintf("CA%d", seq)
		}),
	)
	return f
}

func caseInput(username string) models.ApplicationInput {
	return models.ApplicationInput{
		ApplicantName:      "Alice Example",
		ApplicantUsername:  username,
		Email:              "alice@example.com",
		Phone:              "9876543210",
		Address:            "12 Court Road",
		IdentificationType: models.IdentificationCaseNumber,
		CaseNumber:         strPtr("CIV/2024/001"),
		CaseType:           "civil",
		District:           "Mumbai",
		CourtName:          "High Court of Mumbai",
		CopyTypes:          []string{"Judgment Copy"},
		Purpose:            "Appeal",
	}
}

func approvePatch(doc string) models.ApplicationPatch {
	return models.ApplicationPatch{Status: statusPtr(models.StatusApproved), UploadedDocument: strPtr(doc)}
}

func TestApplicationStoreCreate(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	app, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	assert.Equal(t, "CA1", app.ID)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, f.now, app.SubmittedDate)
	assert.Equal(t, f.now, app.LastUpdated)
	assert.Nil(t, app.ProcessedBy)
	assert.Nil(t, app.ProcessedDate)
	assert.Nil(t, app.StaffRemarks)
	assert.Nil(t, app.UploadedDocument)
	assert.Nil(t, app.FIRNumber)
	require.NotNil(t, app.CaseNumber)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalApplications)
	assert.Zero(t, stats.TotalApproved)
}

func TestApplicationStoreCreateIfEmpty(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	inputs := []models.ApplicationInput{caseInput("citizen"), caseInput("citizen")}

	created, err := f.store.CreateIfEmpty(ctx, inputs)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "CA1", created[0].ID)
	assert.Equal(t, "CA2", created[1].ID)

	created, err = f.store.CreateIfEmpty(ctx, inputs)
	require.NoError(t, err)
	assert.Empty(t, created)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalApplications)
}

func TestApplicationStoreCreateIfEmptyRacingCreates(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()
	inputs := []models.ApplicationInput{caseInput("citizen"), caseInput("citizen")}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		seeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := f.store.Create(ctx, caseInput("alice"))
				assert.NoError(t, err)
				return
			}
			created, err := f.store.CreateIfEmpty(ctx, inputs)
			assert.NoError(t, err)
			mu.Lock()
			seeded += len(created)
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	assert.Contains(t, []int{0, 2}, seeded)
	apps, err := f.store.List(ctx, models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Len(t, apps, 10+seeded)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(apps), stats.TotalApplications)
}

func TestApplicationStoreDefaultIDFormat(t *testing.T) {
	store := NewApplicationStore(NewMemoryBackend())
	app, err := store.Create(context.Background(), caseInput("alice"))
	require.NoError(t, err)
	assert.Regexp(t, `^CA\d{13}[0-9A-F]{9}$`, app.ID)
}

func TestApplicationStoreListByUserAndStatus(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	a, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	mine, err := f.store.List(ctx, models.ApplicationFilter{ApplicantUsername: "alice"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)

	others, err := f.store.List(ctx, models.ApplicationFilter{ApplicantUsername: "bob"})
	require.NoError(t, err)
	assert.Empty(t, others)

	_, err = f.store.Create(ctx, caseInput("bob"))
	require.NoError(t, err)
	c, err := f.store.Create(ctx, caseInput("carol"))
	require.NoError(t, err)

	_, err = f.store.Update(ctx, a.ID, approvePatch("copy.pdf"))
	require.NoError(t, err)
	_, err = f.store.Update(ctx, c.ID, models.ApplicationPatch{Status: statusPtr(models.StatusRejected), StaffRemarks: strPtr("illegible")})
	require.NoError(t, err)

	pending, err := f.store.List(ctx, models.ApplicationFilter{Statuses: []models.ApplicationStatus{models.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.store.List(ctx, models.ApplicationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"CA1", "CA2", "CA3"}, []string{all[0].ID, all[1].ID, all[2].ID})

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalApplications)
	assert.Equal(t, 1, stats.TotalApproved)
	assert.Equal(t, 1, stats.TotalRejected)
	assert.Equal(t, 2, stats.DailyProcessed["2024-03-14"])
}

func TestApplicationStoreListSeveralStatusesKeepsInsertionOrder(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "bob", "carol"} {
		_, err := f.store.Create(ctx, caseInput(user))
		require.NoError(t, err)
	}
	_, err := f.store.Update(ctx, "CA1", models.ApplicationPatch{Status: statusPtr(models.StatusUnderReview)})
	require.NoError(t, err)

	queue, err := f.store.List(ctx, models.ApplicationFilter{
		Statuses: []models.ApplicationStatus{models.StatusPending, models.StatusUnderReview},
	})
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{"CA1", "CA2", "CA3"}, []string{queue[0].ID, queue[1].ID, queue[2].ID})
	assert.Equal(t, models.StatusUnderReview, queue[0].Status)
}

func TestApplicationStoreUpdateCountsEveryApproval(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	app, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	updated, err := f.store.Update(ctx, app.ID, approvePatch("x"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	assert.Equal(t, f.now, updated.LastUpdated)
	assert.Equal(t, "x", *updated.UploadedDocument)

	_, err = f.store.Update(ctx, app.ID, approvePatch("x"))
	require.NoError(t, err)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalApproved)

	count, err := f.store.DailyProcessedCount(ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = f.store.DailyProcessedCount(ctx, f.now.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApplicationStoreUpdateWithoutStatusKeepsStats(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	app, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	_, err = f.store.Update(ctx, app.ID, models.ApplicationPatch{StaffRemarks: strPtr("checking records")})
	require.NoError(t, err)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalApproved+stats.TotalRejected)
	assert.Empty(t, stats.DailyProcessed)
}

func TestApplicationStoreUpdateUnknownID(t *testing.T) {
	f := newStoreFixture(t)
	_, err := f.store.Update(context.Background(), "CA404", approvePatch("x"))
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	_, err = f.store.GetByID(context.Background(), "CA404")
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestApplicationStoreUpdateFuncAbortLeavesState(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	app, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	guard := errors.New("guard failed")
	_, err = f.store.UpdateFunc(ctx, app.ID, func(current models.Application) (models.ApplicationPatch, error) {
		assert.Equal(t, models.StatusPending, current.Status)
		return models.ApplicationPatch{}, guard
	})
	assert.ErrorIs(t, err, guard)

	stored, err := f.store.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestApplicationStoreDeleteKeepsStats(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	app, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)
	_, err = f.store.Update(ctx, app.ID, approvePatch("x"))
	require.NoError(t, err)

	removed, err := f.store.Delete(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = f.store.Delete(ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	all, err := f.store.List(ctx, models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalApplications)
	assert.Equal(t, 1, stats.TotalApproved)
}

func TestApplicationStoreStatsLazilyZero(t *testing.T) {
	f := newStoreFixture(t)
	stats, err := f.store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalApplications)
	assert.NotNil(t, stats.DailyProcessed)
}

func TestApplicationStoreReadsLegacyPayload(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	legacy := `[{"id":"CA1700000000000abc","applicantName":"Rajesh Patel","applicantUsername":"citizen",
"identificationType":"case_number","caseNumber":"CR/2024/001","firNumber":null,"caseType":"criminal",
"status":"pending","submittedDate":"2024-01-15T10:30:00.000Z","lastUpdated":"2024-01-15T10:30:00.000Z",
"staffRemarks":null,"uploadedDocument":null,"processedBy":null,"processedDate":null}]`
	require.NoError(t, f.backend.SaveAll(ctx, ApplicationsKey, []byte(legacy)))
	require.NoError(t, f.backend.SaveAll(ctx, StatisticsKey, []byte(`{"totalApplications":1,"totalApproved":0,"totalRejected":0,"dailyProcessed":{}}`)))

	app, err := f.store.GetByID(ctx, "CA1700000000000abc")
	require.NoError(t, err)
	assert.Equal(t, "CR/2024/001", app.CaseReference())
	assert.Equal(t, 2024, app.SubmittedDate.Year())
}

func TestApplicationStoreReplace(t *testing.T) {
	f := newStoreFixture(t)
	ctx := context.Background()

	_, err := f.store.Create(ctx, caseInput("alice"))
	require.NoError(t, err)

	require.NoError(t, f.store.Replace(ctx, nil, models.Statistics{TotalApplications: 7}))

	all, err := f.store.List(ctx, models.ApplicationFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	stats, err := f.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalApplications)
	assert.NotNil(t, stats.DailyProcessed)
}

type failingBackend struct{ err error }

func (b failingBackend) LoadAll(context.Context, string) ([]byte, error) { return nil, b.err }
func (b failingBackend) SaveAll(context.Context, string, []byte) error  { return b.err }

func TestApplicationStorePropagatesBackendErrors(t *testing.T) {
	boom := errors.New("disk full")
	store := NewApplicationStore(failingBackend{err: boom})

	_, err := store.Create(context.Background(), caseInput("alice"))
	assert.ErrorIs(t, err, boom)

	_, err = store.List(context.Background(), models.ApplicationFilter{})
	assert.ErrorIs(t, err, boom)
}
