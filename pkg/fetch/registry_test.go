package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relaychat/pkg/router"
)

func TestRegistryCommitAndGet(t *testing.T) {
	reg := NewRegistry(router.NewSelection("wss://r"), nil)
	k := Key{Name: "groups"}
	_, ok := reg.Get(k)
	assert.False(t, ok)
	require.True(t, reg.Commit(reg.Begin(k), []string{"a"}))
	v, ok := Load[[]string](reg, k)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)
	_, ok = Load[int](reg, k)
	assert.False(t, ok)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistryInvalidate(t *testing.T) {
	reg := NewRegistry(router.NewSelection("wss://r"), nil)
	a := Key{Name: NameChats, Scope: Scope{Group: "G"}}
	b := Key{Name: NameMessages, Scope: Scope{Group: "G"}}
	reg.Commit(reg.Begin(a), 1)
	reg.Commit(reg.Begin(b), 2)
	tok := reg.Begin(a)
	reg.Invalidate(a)
	_, ok := reg.Get(a)
	assert.False(t, ok)
	_, ok = reg.Get(b)
	assert.True(t, ok)
	assert.False(t, reg.Commit(tok, 3))
	assert.True(t, reg.Commit(reg.Begin(a), 3))
}

func TestRegistryInvalidateUnknownKeyBlocksInFlight(t *testing.T) {
	reg := NewRegistry(router.NewSelection("wss://r"), nil)
	k := Key{Name: NameZaps, Scope: Scope{Event: "e"}}
	tok := reg.Begin(k)
	reg.Invalidate(k)
	assert.False(t, reg.Commit(tok, 1))
}

func TestRegistryInvalidateAll(t *testing.T) {
	sel := router.NewSelection("wss://r")
	reg := NewRegistry(sel, nil)
	keys := []Key{{Name: "a"}, {Name: "b"}, {Name: "c", Scope: Scope{Thread: "t"}}}
	for i, k := range keys {
		reg.Commit(reg.Begin(k), i)
	}
	tok := reg.Begin(keys[0])
	reg.InvalidateAll()
	assert.Equal(t, 0, reg.Len())
	assert.False(t, reg.Commit(tok, 9))
}

func TestRegistrySelectionVersion(t *testing.T) {
	sel := router.NewSelection("wss://r")
	reg := NewRegistry(sel, nil)
	k := Key{Name: "a"}
	tok := reg.Begin(k)
	sel.Select("wss://other")
	assert.False(t, reg.Commit(tok, 1))
	reg.Commit(reg.Begin(k), 1)
	_, ok := reg.Get(k)
	assert.True(t, ok)
	sel.Select("wss://r")
	_, ok = reg.Get(k)
	assert.False(t, ok)
}

func TestKeyString(t *testing.T) {
	assert.NotEqual(t,
		Key{Name: "c", Scope: Scope{Group: "a", Thread: "b"}}.String(),
		Key{Name: "c", Scope: Scope{Group: "ab"}}.String())
}
