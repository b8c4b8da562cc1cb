package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ri/internal/ir"
)

func noop(context.Context) (string, error) { return "", nil }

func TestRegistry_RegisterAndInvoke(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ir.Instruction{Owner: "shop", Name: "shop_ri_2", Version: 2}, func(context.Context) (string, error) {
		return "two", nil
	}))
	require.NoError(t, reg.Register(ir.Instruction{Owner: "shop", Name: "shop_ri_1", Version: 1}, noop))

	assert.True(t, reg.Exists("shop_ri_1"))
	assert.False(t, reg.Exists("shop_ri_3"))
	assert.Equal(t, []string{"shop_ri_1", "shop_ri_2"}, reg.Names())

	owned := reg.Owned("shop")
	require.Len(t, owned, 2)
	assert.Equal(t, "shop_ri_2", owned[0].Name, "Owned keeps registration order")

	msg, err := reg.Invoke(context.Background(), "shop_ri_2")
	require.NoError(t, err)
	assert.Equal(t, "two", msg)

	_, err = reg.Invoke(context.Background(), "shop_ri_3")
	assert.Error(t, err)
}

func TestRegistry_RejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(ir.Instruction{}, noop))
	assert.Error(t, reg.Register(ir.Instruction{Name: "shop_ri_1"}, nil))
}

func TestRegistry_Conflict(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(ir.Instruction{Owner: "shop", Name: "shop_ri_1", Unit: "/a.ri.inc"}, noop))

	err := reg.Register(ir.Instruction{Owner: "shop2", Name: "shop_ri_1", Unit: "/b.ri.inc"}, noop)
	require.True(t, ir.IsConflict(err))

	inst, ok := reg.Lookup("shop_ri_1")
	require.True(t, ok)
	assert.Equal(t, "/a.ri.inc", inst.Unit, "first definition wins")
}

func TestRegistry_RegisterOwned(t *testing.T) {
	reg := NewRegistry()
	owner := ir.Owner{Key: "shop", Name: "Shop"}

	inst, err := reg.RegisterOwned(owner, "shop_ri_20", noop)
	require.NoError(t, err)
	assert.Equal(t, int64(20), inst.Version)
	assert.Equal(t, "shop", inst.Owner)

	_, err = reg.RegisterOwned(owner, "blog_ri_1", noop)
	assert.Error(t, err)
}

func TestRegistry_InvokeReturnsCallableError(t *testing.T) {
	boom := errors.New("boom")
	reg := NewRegistry()
	require.NoError(t, reg.Register(ir.Instruction{Name: "shop_ri_1"}, func(context.Context) (string, error) {
		return "", boom
	}))

	_, err := reg.Invoke(context.Background(), "shop_ri_1")
	assert.ErrorIs(t, err, boom)
}
