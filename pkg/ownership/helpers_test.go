package ownership

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/taproot/pkg/database"
	"github.com/Ramsey-B/taproot/pkg/schema"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// testRegistry mirrors the demo schema: accounts own folders and tags
// directly, items reach their account through their folder, and items link
// to tags through a junction table.
func testRegistry() *schema.Registry {
	accounts := schema.NewType("accounts", "accounts",
		[]string{"id", "name", "email"}, []string{"id"}).
		WithProvider(schema.NewActorSession())

	folders := schema.NewType("folders", "folders",
		[]string{"id", "account_id", "name"}, []string{"id"}).
		BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id", BindingKey: "id"}).
		OwnedBy("accounts", "account")

	items := schema.NewType("items", "items",
		[]string{"id", "folder_id", "name"}, []string{"id"}).
		BelongsTo("folder", "folders", schema.KeyPair{ForeignKey: "folder_id", BindingKey: "id"}).
		BelongsToMany("tags", "tags", "items_tags",
			[]schema.KeyPair{{ForeignKey: "item_id", BindingKey: "id"}},
			[]schema.KeyPair{{ForeignKey: "tag_id", BindingKey: "id"}}).
		OwnedBy("accounts", "folder")

	tags := schema.NewType("tags", "tags",
		[]string{"id", "account_id", "label"}, []string{"id"}).
		BelongsTo("account", "accounts", schema.KeyPair{ForeignKey: "account_id", BindingKey: "id"}).
		OwnedBy("accounts", "account")

	return schema.NewRegistry().
		MustRegister(accounts).
		MustRegister(folders).
		MustRegister(items).
		MustRegister(tags)
}

func newTestEngine(t *testing.T, types *schema.Registry) (*Engine, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewDatabaseInstance(sqlx.NewDb(mockDB, "sqlmock"), testLogger())
	return NewEngine(types, db, testLogger()), mock
}

func mustGetType(t *testing.T, types *schema.Registry, name string) *schema.Type {
	t.Helper()
	typ, ok := types.Get(name)
	require.True(t, ok, "type %q is not registered", name)
	return typ
}
