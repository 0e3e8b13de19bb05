package runs

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/sku-price-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()

	run := r.Create(2)
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, run.Status)

	require.NoError(t, r.Start(run.ID))
	got, ok := r.Get(run.ID)
	require.True(t, ok)
	assert.Equal(t, StatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)

	outcomes := []models.Outcome{
		{SKU: "A1", Price: "9.99"},
		{SKU: "B2", Price: models.PriceNotAvailable},
	}
	require.NoError(t, r.Complete(run.ID, outcomes))

	got, _ = r.Get(run.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, outcomes, got.Outcomes)
	assert.Equal(t, models.Summary{Total: 2, OK: 1, NotAvailable: 1}, *got.Summary)
	assert.NotNil(t, got.CompletedAt)
}

func TestRegistryFail(t *testing.T) {
	r := NewRegistry()
	run := r.Create(3)

	require.NoError(t, r.Fail(run.ID, []models.Outcome{{SKU: "A1", Price: "1"}}, errors.New("context canceled")))

	got, _ := r.Get(run.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "context canceled", got.Error)
	assert.Len(t, got.Outcomes, 1)
}

func TestRegistryUnknownRun(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Error(t, r.Start("missing"))
	assert.Error(t, r.Complete("missing", nil))
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	run := r.Create(1)
	require.NoError(t, r.Complete(run.ID, []models.Outcome{{SKU: "A1", Price: "1"}}))

	got, _ := r.Get(run.ID)
	got.Outcomes[0].Price = "tampered"

	again, _ := r.Get(run.ID)
	assert.Equal(t, "1", again.Outcomes[0].Price)
}

func TestRegistryListAndStats(t *testing.T) {
	r := NewRegistry()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first := r.Create(1)
	second := r.Create(1)
	require.NoError(t, r.Complete(first.ID, []models.Outcome{{SKU: "A1", Price: "1"}}))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Nil(t, list[1].Outcomes, "list omits outcomes")

	assert.Equal(t, map[string]int{"total": 2, "pending": 1, "completed": 1}, r.GetStats())
}
