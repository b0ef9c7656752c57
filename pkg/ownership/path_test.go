package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/taproot/pkg/schema"
)

func TestOwnerPath(t *testing.T) {
	engine, _ := newTestEngine(t, testRegistry())

	t.Run("DirectHop", func(t *testing.T) {
		path, ok, err := engine.OwnerPath("folders", "")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"account"}, path)
	})

	t.Run("ChainedHops", func(t *testing.T) {
		path, ok, err := engine.OwnerPath("items", "")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []string{"folder", "account"}, path)
	})

	t.Run("Deterministic", func(t *testing.T) {
		first, ok, err := engine.OwnerPath("items", "")
		require.NoError(t, err)
		require.True(t, ok)
		second, ok, err := engine.OwnerPath("items", "")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, first, second)
	})

	t.Run("OwnerTypeHasNoPath", func(t *testing.T) {
		_, ok, err := engine.OwnerPath("accounts", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DifferentTargetOwner", func(t *testing.T) {
		_, ok, err := engine.OwnerPath("items", "folders")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestOwnerPath_Cycle(t *testing.T) {
	root := schema.NewType("root", "root", []string{"id"}, []string{"id"}).
		WithProvider(schema.NewActorSession())
	left := schema.NewType("left", "left",
		[]string{"id", "right_id"}, []string{"id"}).
		BelongsTo("right", "right", schema.KeyPair{ForeignKey: "right_id", BindingKey: "id"}).
		OwnedBy("root", "right")
	right := schema.NewType("right", "right",
		[]string{"id", "left_id"}, []string{"id"}).
		BelongsTo("left", "left", schema.KeyPair{ForeignKey: "left_id", BindingKey: "id"}).
		OwnedBy("root", "left")
	types := schema.NewRegistry().
		MustRegister(root).
		MustRegister(left).
		MustRegister(right)

	engine, _ := newTestEngine(t, types)
	_, _, err := engine.OwnerPath("left", "")
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "cycle")
}
