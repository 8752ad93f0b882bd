package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apiworkbench/store"
	"apiworkbench/utils"
)

func newEnvironmentFixture(t *testing.T) (*EnvironmentService, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewEnvironmentService(st, testOptions()...), st
}

func activeIDs(t *testing.T, svc *EnvironmentService) []int64 {
	t.Helper()
	envs, err := svc.ListEnvironments(context.Background())
	require.NoError(t, err)
	var ids []int64
	for _, e := range envs {
		if e.IsActive {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func TestActivateEnvironmentIsExclusive(t *testing.T) {
	svc, _ := newEnvironmentFixture(t)
	ctx := context.Background()

	a, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "dev", IsActive: true})
	require.NoError(t, err)
	b, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "staging"})
	require.NoError(t, err)
	_, err = svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "prod"})
	require.NoError(t, err)
	assert.Equal(t, []int64{a.ID}, activeIDs(t, svc))

	activated, err := svc.ActivateEnvironment(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, activated.IsActive)

	reloaded, err := svc.GetEnvironment(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
	assert.Equal(t, []int64{b.ID}, activeIDs(t, svc))

	active, err := svc.GetActiveEnvironment(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)
}

func TestCreateActiveEnvironmentDeactivatesOthers(t *testing.T) {
	svc, _ := newEnvironmentFixture(t)
	ctx := context.Background()

	_, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "one", IsActive: true})
	require.NoError(t, err)
	two, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "two", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, []int64{two.ID}, activeIDs(t, svc))

	active := true
	three, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "three"})
	require.NoError(t, err)
	_, err = svc.UpdateEnvironment(ctx, three.ID, UpdateEnvironmentInput{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, []int64{three.ID}, activeIDs(t, svc))

	inactive := false
	_, err = svc.UpdateEnvironment(ctx, three.ID, UpdateEnvironmentInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.Empty(t, activeIDs(t, svc))

	_, err = svc.GetActiveEnvironment(ctx)
	requireNotFound(t, err, "Active environment not found")
}

func TestEnvironmentVariables(t *testing.T) {
	svc, st := newEnvironmentFixture(t)
	ctx := context.Background()

	env, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{
		Name:    "dev",
		BaseURL: "https://dev.example.com",
		Variables: []VariableInput{
			{Key: "token", Value: "abc"},
			{Key: "user_id", Value: "42"},
		},
	})
	require.NoError(t, err)
	require.Len(t, env.Variables, 2)
	assert.Equal(t, map[string]string{"token": "abc", "user_id": "42"}, env.VariableMap())

	added, err := svc.AddVariable(ctx, env.ID, VariableInput{Key: "region", Value: "eu"})
	require.NoError(t, err)

	value := "us"
	updated, err := svc.UpdateVariable(ctx, env.ID, added.ID, UpdateVariableInput{Value: &value})
	require.NoError(t, err)
	assert.Equal(t, "region", updated.Key)
	assert.Equal(t, "us", updated.Value)

	t.Run("variable must belong to the environment", func(t *testing.T) {
		other, err := svc.CreateEnvironment(ctx, CreateEnvironmentInput{Name: "other"})
		require.NoError(t, err)
		err = svc.DeleteVariable(ctx, other.ID, added.ID)
		requireNotFound(t, err, "Variable with id 3 not found")
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := svc.AddVariable(ctx, env.ID, VariableInput{Key: "not valid"})
		assert.True(t, utils.IsValidationError(err))
	})

	t.Run("delete cascades to variables", func(t *testing.T) {
		require.NoError(t, svc.DeleteEnvironment(ctx, env.ID))
		left, err := st.Variables().ListByEnvironment(ctx, env.ID)
		require.NoError(t, err)
		assert.Empty(t, left)

		_, err = svc.GetEnvironment(ctx, env.ID)
		requireNotFound(t, err, "Environment with id 1 not found")
	})
}
