package ownership

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityStates(t *testing.T) {
	assert.True(t, AbsentIdentity().Absent())
	assert.True(t, UnownedIdentity().Unowned())
	assert.True(t, ResolvedIdentity(map[string]any{"id": 1}).Resolved())
}

func TestIdentityEqual(t *testing.T) {
	t.Run("SentinelsCompareByState", func(t *testing.T) {
		assert.True(t, AbsentIdentity().Equal(AbsentIdentity()))
		assert.True(t, UnownedIdentity().Equal(UnownedIdentity()))
		assert.False(t, AbsentIdentity().Equal(UnownedIdentity()))
		assert.False(t, UnownedIdentity().Equal(ResolvedIdentity(map[string]any{"id": 1})))
	})

	t.Run("ResolvedComparesByValues", func(t *testing.T) {
		a := ResolvedIdentity(map[string]any{"id": 9})
		b := ResolvedIdentity(map[string]any{"id": 9})
		c := ResolvedIdentity(map[string]any{"id": 7})
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
	})

	t.Run("DriverNumericTypesCoerce", func(t *testing.T) {
		scanned := ResolvedIdentity(map[string]any{"id": int64(9)})
		declared := ResolvedIdentity(map[string]any{"id": 9})
		assert.True(t, scanned.Equal(declared))
	})

	t.Run("CompositeKeys", func(t *testing.T) {
		a := ResolvedIdentity(map[string]any{"region": "us", "id": 1})
		b := ResolvedIdentity(map[string]any{"region": "us", "id": 1})
		c := ResolvedIdentity(map[string]any{"region": "eu", "id": 1})
		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
		assert.False(t, a.Equal(ResolvedIdentity(map[string]any{"region": "us"})))
	})
}

func TestIdentityMarshalJSON(t *testing.T) {
	t.Run("AbsentIsFalse", func(t *testing.T) {
		data, err := json.Marshal(AbsentIdentity())
		require.NoError(t, err)
		assert.Equal(t, "false", string(data))
	})

	t.Run("UnownedIsNull", func(t *testing.T) {
		data, err := json.Marshal(UnownedIdentity())
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})

	t.Run("ResolvedIsValueObject", func(t *testing.T) {
		data, err := json.Marshal(ResolvedIdentity(map[string]any{"id": 9}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id": 9}`, string(data))
	})
}

func TestIdentityString(t *testing.T) {
	assert.Equal(t, "absent", AbsentIdentity().String())
	assert.Equal(t, "unowned", UnownedIdentity().String())
	assert.Equal(t, "{id: 9}", ResolvedIdentity(map[string]any{"id": 9}).String())
}
