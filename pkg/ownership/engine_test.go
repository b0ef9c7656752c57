package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/taproot/pkg/schema"
)

func TestConfigFor_ValidDeclarations(t *testing.T) {
	engine, _ := newTestEngine(t, testRegistry())

	t.Run("OwnedType", func(t *testing.T) {
		cfg, err := engine.ConfigFor("folders")
		require.NoError(t, err)
		assert.True(t, cfg.Enabled())
		assert.Equal(t, "accounts", cfg.Owner)
		assert.Equal(t, "account", cfg.ParentRelation)
	})

	t.Run("OwnerTypeIsPassThrough", func(t *testing.T) {
		cfg, err := engine.ConfigFor("accounts")
		require.NoError(t, err)
		assert.False(t, cfg.Enabled())
	})

	t.Run("ChainedType", func(t *testing.T) {
		cfg, err := engine.ConfigFor("items")
		require.NoError(t, err)
		assert.Equal(t, "accounts", cfg.Owner)
		assert.Equal(t, "folder", cfg.ParentRelation)
	})
}

func TestConfigFor_Memoization(t *testing.T) {
	engine, _ := newTestEngine(t, testRegistry())

	first, err := engine.ConfigFor("folders")
	require.NoError(t, err)
	second, err := engine.ConfigFor("folders")
	require.NoError(t, err)
	assert.Same(t, first, second)

	engine.ResetCache()
	third, err := engine.ConfigFor("folders")
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Equal(t, first, third)
}

func TestConfigFor_InvalidDeclarations(t *testing.T) {
	owner := func() *schema.Type {
		return schema.NewType("accounts", "accounts",
			[]string{"id"}, []string{"id"}).
			WithProvider(schema.NewActorSession())
	}

	t.Run("UnregisteredType", func(t *testing.T) {
		engine, _ := newTestEngine(t, schema.NewRegistry())
		_, err := engine.ConfigFor("ghosts")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "ghosts", cfgErr.TypeName)
	})

	t.Run("OwnerWithoutParentRelation", func(t *testing.T) {
		broken := schema.NewType("folders", "folders",
			[]string{"id", "account_id"}, []string{"id"}).
			OwnedBy("accounts", "")
		types := schema.NewRegistry().MustRegister(owner()).MustRegister(broken)

		engine, _ := newTestEngine(t, types)
		_, err := engine.ConfigFor("folders")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "declared together")
	})

	t.Run("OwnerTypeNotRegistered", func(t *testing.T) {
		broken := schema.NewType("folders", "folders",
			[]string{"id", "account_id"}, []string{"id"}).
			BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id", BindingKey: "id"}).
			OwnedBy("accounts", "account")
		types := schema.NewRegistry().MustRegister(broken)

		engine, _ := newTestEngine(t, types)
		_, err := engine.ConfigFor("folders")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "not registered")
	})

	t.Run("OwnerTypeWithoutProvider", func(t *testing.T) {
		bare := schema.NewType("accounts", "accounts", []string{"id"}, []string{"id"})
		folders := schema.NewType("folders", "folders",
			[]string{"id", "account_id"}, []string{"id"}).
			BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id", BindingKey: "id"}).
			OwnedBy("accounts", "account")
		types := schema.NewRegistry().MustRegister(bare).MustRegister(folders)

		engine, _ := newTestEngine(t, types)
		_, err := engine.ConfigFor("folders")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "owner capability")
	})

	t.Run("ParentRelationNotDeclared", func(t *testing.T) {
		broken := schema.NewType("folders", "folders",
			[]string{"id", "account_id"}, []string{"id"}).
			OwnedBy("accounts", "account")
		types := schema.NewRegistry().MustRegister(owner()).MustRegister(broken)

		engine, _ := newTestEngine(t, types)
		_, err := engine.ConfigFor("folders")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "not declared")
	})

	t.Run("ParentRelationIsToMany", func(t *testing.T) {
		broken := schema.NewType("folders", "folders",
			[]string{"id"}, []string{"id"}).
			BelongsToMany("account", "accounts", "accounts_folders",
				[]schema.KeyPair{{ForeignKey: "folder_id", BindingKey: "id"}},
				[]schema.KeyPair{{ForeignKey: "account_id", BindingKey: "id"}}).
			OwnedBy("accounts", "account")
		types := schema.NewRegistry().MustRegister(owner()).MustRegister(broken)

		engine, _ := newTestEngine(t, types)
		_, err := engine.ConfigFor("folders")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "to-one")
	})

	t.Run("IncompleteKeyPair", func(t *testing.T) {
		broken := schema.NewType("folders", "folders",
			[]string{"id", "account_id"}, []string{"id"}).
			BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id"}).
			OwnedBy("accounts", "account")
		types := schema.NewRegistry().MustRegister(owner()).MustRegister(broken)

		engine, _ := newTestEngine(t, types)
		_, err := engine.ConfigFor("folders")
		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "incomplete key pair")
	})
}
