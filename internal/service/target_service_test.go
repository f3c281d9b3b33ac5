package service

import (
	"context"
	"strings"
	"testing"

	"github.com/minisource/heartbeat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTargetServiceCreate tests target registration and its validation rules
func TestTargetServiceCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("Full Target", func(t *testing.T) {
		body := `{"ping":true}`
		target, err := env.targets.Create(ctx, &models.CreateTargetRequest{
			Name:    "billing-api",
			URL:     "https://billing.example.com/health",
			Method:  "post",
			Headers: map[string]string{"Authorization": "Bearer token"},
			Body:    &body,
		})
		require.NoError(t, err)

		assert.NotZero(t, target.ID)
		assert.Equal(t, "POST", target.Method)
		assert.Equal(t, "Bearer token", target.Headers["Authorization"])
		require.NotNil(t, target.Body)
		assert.Equal(t, body, *target.Body)
	})

	t.Run("Method Defaults To GET", func(t *testing.T) {
		target, err := env.targets.Create(ctx, &models.CreateTargetRequest{
			Name: "plain",
			URL:  "https://example.com/ping",
		})
		require.NoError(t, err)
		assert.Equal(t, "GET", target.Method)
	})

	t.Run("Duplicate Name", func(t *testing.T) {
		_, err := env.targets.Create(ctx, &models.CreateTargetRequest{
			Name: "plain",
			URL:  "https://example.com/other",
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNameTaken)
	})

	testCases := []struct {
		name string
		req  models.CreateTargetRequest
	}{
		{"Empty Name", models.CreateTargetRequest{Name: "", URL: "https://example.com"}},
		{"Oversize Name", models.CreateTargetRequest{Name: strings.Repeat("x", 256), URL: "https://example.com"}},
		{"Relative URL", models.CreateTargetRequest{Name: "bad", URL: "/health"}},
		{"Bare Host", models.CreateTargetRequest{Name: "bad", URL: "example.com/health"}},
		{"Wrong Scheme", models.CreateTargetRequest{Name: "bad", URL: "ftp://example.com/file"}},
		{"Unsupported Method", models.CreateTargetRequest{Name: "bad", URL: "https://example.com", Method: "TRACE"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.targets.Create(ctx, &tc.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

// TestTargetServiceGet tests lookup and the not-found mapping
func TestTargetServiceGet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.targets.Create(ctx, &models.CreateTargetRequest{
		Name: "api", URL: "https://example.com/ping",
	})
	require.NoError(t, err)

	found, err := env.targets.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, found.Name)

	_, err = env.targets.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

// TestTargetServiceUpdate tests partial updates and their validation
func TestTargetServiceUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.targets.Create(ctx, &models.CreateTargetRequest{
		Name: "api", URL: "https://example.com/ping",
	})
	require.NoError(t, err)
	_, err = env.targets.Create(ctx, &models.CreateTargetRequest{
		Name: "taken", URL: "https://example.com/other",
	})
	require.NoError(t, err)

	t.Run("Rename And Retune", func(t *testing.T) {
		updated, err := env.targets.Update(ctx, created.ID, &models.UpdateTargetRequest{
			Name:   strptr("api-v2"),
			Method: strptr("head"),
		})
		require.NoError(t, err)
		assert.Equal(t, "api-v2", updated.Name)
		assert.Equal(t, "HEAD", updated.Method)
		assert.Equal(t, "https://example.com/ping", updated.URL)
	})

	t.Run("Empty Update Is A No-Op", func(t *testing.T) {
		updated, err := env.targets.Update(ctx, created.ID, &models.UpdateTargetRequest{})
		require.NoError(t, err)
		assert.Equal(t, "api-v2", updated.Name)
	})

	t.Run("Invalid URL Rejected", func(t *testing.T) {
		_, err := env.targets.Update(ctx, created.ID, &models.UpdateTargetRequest{
			URL: strptr("not a url at all://"),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Name Collision", func(t *testing.T) {
		_, err := env.targets.Update(ctx, created.ID, &models.UpdateTargetRequest{
			Name: strptr("taken"),
		})
		assert.ErrorIs(t, err, ErrNameTaken)
	})

	t.Run("Missing Target", func(t *testing.T) {
		_, err := env.targets.Update(ctx, 9999, &models.UpdateTargetRequest{
			Name: strptr("ghost"),
		})
		assert.ErrorIs(t, err, ErrTargetNotFound)
	})
}

// TestTargetServiceDelete tests removal with dependent schedules
func TestTargetServiceDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	target, err := env.targets.Create(ctx, &models.CreateTargetRequest{
		Name: "api", URL: "https://example.com/ping",
	})
	require.NoError(t, err)

	schedule, err := env.schedules.Create(ctx, &models.CreateScheduleRequest{
		Name:            "api-minutely",
		TargetID:        target.ID,
		ScheduleType:    models.ScheduleTypeInterval,
		IntervalSeconds: 60,
	})
	require.NoError(t, err)

	require.NoError(t, env.targets.Delete(ctx, target.ID))

	_, err = env.targets.GetByID(ctx, target.ID)
	assert.ErrorIs(t, err, ErrTargetNotFound)
	_, err = env.schedules.GetByID(ctx, schedule.ID)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	t.Run("Missing Target", func(t *testing.T) {
		assert.ErrorIs(t, env.targets.Delete(ctx, target.ID), ErrTargetNotFound)
	})
}

// TestTargetServiceList tests paging passthrough
func TestTargetServiceList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		_, err := env.targets.Create(ctx, &models.CreateTargetRequest{
			Name: name, URL: "https://example.com/" + name,
		})
		require.NoError(t, err)
	}

	result, err := env.targets.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, result.Targets, 2)
	assert.EqualValues(t, 3, result.TotalCount)
	assert.True(t, result.HasMore)
}
