package tenant

import (
	"testing"

	"agendazap/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoTenantRegistry() *Registry {
	return NewRegistry(map[string]models.Tenant{
		"empresa1": {
			ID:         "empresa1",
			Session:    "default",
			BotNumbers: []string{"5511888880000"},
			Admins:     []string{"5511777770000"},
		},
		"empresa2": {
			ID:         "empresa2",
			Session:    "second",
			BotNumbers: []string{"5511666660000"},
		},
	}, "empresa1")
}

func TestResolvePrecedence(t *testing.T) {
	r := twoTenantRegistry()

	t.Run("query override wins", func(t *testing.T) {
		id, err := r.Resolve("empresa2", "empresa1", models.NormalizedMessage{TenantHint: "empresa1"})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("unknown query override is skipped", func(t *testing.T) {
		id, err := r.Resolve("nope", "", models.NormalizedMessage{TenantHint: "empresa2"})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("header override", func(t *testing.T) {
		id, err := r.Resolve("", "empresa2", models.NormalizedMessage{})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("payload hint", func(t *testing.T) {
		id, err := r.Resolve("", "", models.NormalizedMessage{TenantHint: "empresa2"})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("unambiguous session", func(t *testing.T) {
		id, err := r.Resolve("", "", models.NormalizedMessage{SessionHint: "second"})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("owner bot number", func(t *testing.T) {
		id, err := r.Resolve("", "", models.NormalizedMessage{Owner: "+5511666660000"})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("to bot number", func(t *testing.T) {
		id, err := r.Resolve("", "", models.NormalizedMessage{To: "5511666660000@s.whatsapp.net"})
		require.NoError(t, err)
		assert.Equal(t, "empresa2", id)
	})

	t.Run("default tenant fallback", func(t *testing.T) {
		id, err := r.Resolve("", "", models.NormalizedMessage{})
		require.NoError(t, err)
		assert.Equal(t, "empresa1", id)
	})
}

func TestResolveAmbiguousSessionFallsThrough(t *testing.T) {
	r := NewRegistry(map[string]models.Tenant{
		"a": {ID: "a", Session: "shared"},
		"b": {ID: "b", Session: "shared"},
	}, "")

	_, err := r.Resolve("", "", models.NormalizedMessage{SessionHint: "shared"})
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestResolveSingleTenant(t *testing.T) {
	r := NewRegistry(map[string]models.Tenant{
		"solo": {ID: "solo", Session: "default"},
	}, "")

	id, err := r.Resolve("", "", models.NormalizedMessage{})
	require.NoError(t, err)
	assert.Equal(t, "solo", id)
}

func TestResolveUnresolved(t *testing.T) {
	r := NewRegistry(map[string]models.Tenant{
		"a": {ID: "a", Session: "s1"},
		"b": {ID: "b", Session: "s2"},
	}, "missing")

	_, err := r.Resolve("", "", models.NormalizedMessage{})
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestRegistryAdminLookup(t *testing.T) {
	r := twoTenantRegistry()
	assert.True(t, r.IsAdmin("empresa1", "5511777770000@c.us"))
	assert.False(t, r.IsAdmin("empresa1", "5511999990000@c.us"))
	assert.False(t, r.IsAdmin("empresa2", "5511777770000@c.us"))
}

func TestRegistryGetUnknown(t *testing.T) {
	r := twoTenantRegistry()
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownTenant)
}
