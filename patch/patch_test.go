// Package patch_test contains tests for the patch package.
package patch_test

import (
	"testing"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/repokit/patch"
	"github.com/rise-and-shine/repokit/record"
)

type profile struct {
	ID        int64   `record:"id,pk"`
	FirstName string  `record:"first_name"`
	LastName  string  `record:"last_name"`
	Email     string  `record:"email"`
	Nickname  *string `record:"nickname"`
	Age       int     `record:"age"`
	Rev       int64   `record:"rev,version"`
}

func schema(t *testing.T) *record.Schema {
	t.Helper()
	return record.MustInfer[profile]()
}

func TestSetValidation(t *testing.T) {
	tests := []struct {
		name     string
		attr     string
		value    any
		wantCode string
	}{
		{name: "unknown attribute", attr: "middle_name", value: "x", wantCode: patch.CodeUnknownAttribute},
		{name: "identity attribute", attr: "id", value: int64(2), wantCode: patch.CodeImmutableField},
		{name: "version attribute", attr: "rev", value: int64(9), wantCode: patch.CodeImmutableField},
		{name: "incompatible value", attr: "age", value: "thirty", wantCode: record.CodeTypeMismatch},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := patch.New(schema(t))
			err := p.Set(tc.attr, tc.value)
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, tc.wantCode), "want code %s, got %v", tc.wantCode, err)
			assert.True(t, p.IsEmpty())
		})
	}
}

func TestSetAndInspect(t *testing.T) {
	p := patch.New(schema(t))

	require.NoError(t, p.Set("email", "new@x.com"))
	require.NoError(t, p.Set("age", 31))
	require.NoError(t, p.Clear("nickname"))

	assert.Equal(t, 3, p.Len())
	assert.False(t, p.IsEmpty())
	assert.Equal(t, []string{"email", "age", "nickname"}, p.Attrs())

	v, ok := p.Value("email")
	require.True(t, ok)
	assert.Equal(t, "new@x.com", v)

	v, ok = p.Value("age")
	require.True(t, ok)
	assert.Equal(t, int64(31), v)

	v, ok = p.Value("nickname")
	require.True(t, ok)
	assert.Nil(t, v)

	assert.False(t, p.Has("first_name"))
	_, ok = p.Value("first_name")
	assert.False(t, ok)

	t.Run("set again overwrites in place", func(t *testing.T) {
		require.NoError(t, p.Set("email", "other@x.com"))
		assert.Equal(t, []string{"email", "age", "nickname"}, p.Attrs())
		v, _ := p.Value("email")
		assert.Equal(t, "other@x.com", v)
	})

	t.Run("typed nil means clear", func(t *testing.T) {
		require.NoError(t, p.Set("last_name", (*string)(nil)))
		v, ok := p.Value("last_name")
		require.True(t, ok)
		assert.Nil(t, v)
	})
}

func TestFromMap(t *testing.T) {
	t.Run("valid map", func(t *testing.T) {
		p, err := patch.FromMap(schema(t), map[string]any{
			"email": "new@x.com",
			"age":   31,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"email", "age"}, p.Attrs()) // schema declaration order
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := patch.FromMap(schema(t), map[string]any{
			"email":       "new@x.com",
			"middle_name": "x",
		})
		assert.True(t, errx.IsCodeIn(err, patch.CodeUnknownAttribute))
	})

	t.Run("identity key", func(t *testing.T) {
		_, err := patch.FromMap(schema(t), map[string]any{"id": 5})
		assert.True(t, errx.IsCodeIn(err, patch.CodeImmutableField))
	})

	t.Run("nil value clears", func(t *testing.T) {
		p, err := patch.FromMap(schema(t), map[string]any{"nickname": nil})
		require.NoError(t, err)
		v, ok := p.Value("nickname")
		require.True(t, ok)
		assert.Nil(t, v)
	})
}

func TestMerge(t *testing.T) {
	existing := profile{
		ID:        1,
		FirstName: "John",
		Email:     "j@x.com",
	}

	t.Run("merges only present attributes", func(t *testing.T) {
		p := patch.New(schema(t))
		require.NoError(t, p.Set("email", "new@x.com"))

		merged, changed, err := patch.Merge(existing, p)
		require.NoError(t, err)

		assert.True(t, changed)
		assert.Equal(t, profile{ID: 1, FirstName: "John", Email: "new@x.com"}, merged)
		assert.Equal(t, "", merged.LastName) // absent attributes untouched
	})

	t.Run("existing record is never mutated", func(t *testing.T) {
		p := patch.New(schema(t))
		require.NoError(t, p.Set("email", "new@x.com"))
		require.NoError(t, p.Set("nickname", "johnny"))

		_, _, err := patch.Merge(existing, p)
		require.NoError(t, err)

		assert.Equal(t, "j@x.com", existing.Email)
		assert.Nil(t, existing.Nickname)
	})

	t.Run("idempotent", func(t *testing.T) {
		p := patch.New(schema(t))
		require.NoError(t, p.Set("email", "new@x.com"))
		require.NoError(t, p.Set("age", 31))

		once, changedOnce, err := patch.Merge(existing, p)
		require.NoError(t, err)
		twice, changedTwice, err := patch.Merge(once, p)
		require.NoError(t, err)

		assert.Equal(t, once, twice)
		assert.True(t, changedOnce)
		assert.False(t, changedTwice) // second application restates current values
	})

	t.Run("empty patch is the identity", func(t *testing.T) {
		merged, changed, err := patch.Merge(existing, patch.New(schema(t)))
		require.NoError(t, err)
		assert.Equal(t, existing, merged)
		assert.False(t, changed)
	})

	t.Run("nil patch is the identity", func(t *testing.T) {
		merged, changed, err := patch.Merge(existing, nil)
		require.NoError(t, err)
		assert.Equal(t, existing, merged)
		assert.False(t, changed)
	})

	t.Run("restating current values reports no change", func(t *testing.T) {
		p := patch.New(schema(t))
		require.NoError(t, p.Set("email", "j@x.com"))
		require.NoError(t, p.Set("first_name", "John"))

		merged, changed, err := patch.Merge(existing, p)
		require.NoError(t, err)
		assert.Equal(t, existing, merged)
		assert.False(t, changed)
	})

	t.Run("clear nullable attribute", func(t *testing.T) {
		nick := "johnny"
		rec := existing
		rec.Nickname = &nick

		p := patch.New(schema(t))
		require.NoError(t, p.Clear("nickname"))

		merged, changed, err := patch.Merge(rec, p)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Nil(t, merged.Nickname)

		again, changed, err := patch.Merge(merged, p)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Nil(t, again.Nickname)
	})

	t.Run("clear plain attribute zeroes it", func(t *testing.T) {
		p := patch.New(schema(t))
		require.NoError(t, p.Clear("first_name"))

		merged, changed, err := patch.Merge(existing, p)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "", merged.FirstName)
	})

	t.Run("patch bound to another schema is rejected", func(t *testing.T) {
		type other struct {
			ID   int64  `record:"id,pk"`
			Name string `record:"name"`
		}
		p := patch.New(record.MustInfer[other]())
		require.NoError(t, p.Set("name", "x"))

		_, _, err := patch.Merge(existing, p)
		assert.Error(t, err)
	})
}
