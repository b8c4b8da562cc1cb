package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ri/internal/ir"
	"github.com/roach88/ri/internal/testutil"
)

func newTestDiscoverer(t *testing.T, root string, kv OptionStore) *Discoverer {
	t.Helper()
	reg := NewRegistry()
	loader := NewLoader(reg, LoaderOptions{Options: kv})
	return New(&ManifestRegistry{Dir: root}, Convention{Root: root}, loader)
}

func TestListOwners_CapabilityAndOrder(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "zeta", Name: "Zeta"})
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "alpha", Name: "Alpha"})
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "plain", Name: "Plain", NoRI: true})
	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-manifest"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README"), []byte("x"), 0o644))

	d := newTestDiscoverer(t, root, nil)
	owners, err := d.ListOwners()
	require.NoError(t, err)

	require.Len(t, owners, 2)
	assert.Equal(t, "alpha", owners[0].Key)
	assert.Equal(t, "zeta", owners[1].Key)
	assert.Equal(t, "Alpha", owners[0].Name)
	assert.True(t, owners[0].RI)
}

func TestListOwners_ActiveFilter(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "a", Name: "A"})
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "b", Name: "B"})
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "c", Name: "C"})

	reg := &ManifestRegistry{Dir: root, Active: []string{"a"}, NetworkActive: []string{"c"}}
	owners, err := reg.ListActiveOwnersWithCapability()
	require.NoError(t, err)
	require.Len(t, owners, 1)
	assert.Equal(t, "a", owners[0].Key)

	reg.Multisite = true
	owners, err = reg.ListActiveOwnersWithCapability()
	require.NoError(t, err)
	require.Len(t, owners, 2)
	assert.Equal(t, "a", owners[0].Key)
	assert.Equal(t, "c", owners[1].Key)
}

func TestListOwners_MissingDirIsEmpty(t *testing.T) {
	d := newTestDiscoverer(t, filepath.Join(t.TempDir(), "absent"), nil)

	owners, err := d.ListOwners()
	require.NoError(t, err)
	assert.Empty(t, owners)

	groups, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestListOwners_BadManifest(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broken")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("name: X\nrl: true\n"), 0o644))

	d := newTestDiscoverer(t, root, nil)
	_, err := d.ListOwners()
	require.Error(t, err)

	var me *ManifestError
	assert.ErrorAs(t, err, &me)
}

func TestParseManifest_NameRequired(t *testing.T) {
	_, err := ParseManifest("p.yaml", []byte("ri: true\n"))
	var me *ManifestError
	require.ErrorAs(t, err, &me)
	assert.Contains(t, me.Error(), "name is required")
}

func TestListSourceUnits(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.Plugin{
		Key:  "shop",
		Name: "Shop",
		Units: map[string]string{
			"b.ri.inc":   "",
			"a.ri.inc":   "",
			"notes.txt":  "",
			"c.ri.inc.x": "",
		},
	})
	testutil.WritePlugin(t, root, testutil.Plugin{Key: "empty", Name: "Empty"})

	d := newTestDiscoverer(t, root, nil)
	units, err := d.ListSourceUnits()
	require.NoError(t, err)

	require.Len(t, units, 2)
	assert.Equal(t, "shop", units[0].Owner)
	assert.Equal(t, "a.ri.inc", filepath.Base(units[0].Path))
	assert.Equal(t, "b.ri.inc", filepath.Base(units[1].Path))
	assert.True(t, filepath.IsAbs(units[0].Path))
}

func TestConvention_NoRIDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "shop"), 0o755))

	units, err := Convention{Root: root}.SourceUnits(ir.Owner{Key: "shop"})
	require.NoError(t, err)
	assert.Empty(t, units)

	units, err = Convention{}.SourceUnits(ir.Owner{Key: "shop"})
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestDiscover_ShopScenario(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.ShopPlugin())

	d := newTestDiscoverer(t, root, testutil.NewMemoryKV())
	groups, err := d.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, "shop", groups[0].Owner.Key)
	require.Len(t, groups[0].Instructions, 2)
	assert.Equal(t, "shop_ri_1", groups[0].Instructions[0].Name)
	assert.Equal(t, int64(1), groups[0].Instructions[0].Version)
	assert.Equal(t, "shop_ri_2", groups[0].Instructions[1].Name)

	assert.True(t, d.Registry().Exists("shop_ri_1"))
}

func TestDiscover_IncludesGoRegisteredInstructions(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.ShopPlugin())

	d := newTestDiscoverer(t, root, testutil.NewMemoryKV())
	_, err := d.Registry().RegisterOwned(ir.Owner{Key: "shop", Name: "Shop"}, "shop_ri_3", func(context.Context) (string, error) {
		return "", nil
	})
	require.NoError(t, err)

	groups, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Instructions, 3)
	assert.Equal(t, "shop_ri_3", groups[0].Instructions[2].Name)
	assert.Empty(t, groups[0].Instructions[2].Unit)
}

func TestDiscover_Idempotent(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.ShopPlugin())

	d := newTestDiscoverer(t, root, testutil.NewMemoryKV())
	first, err := d.Discover(context.Background())
	require.NoError(t, err)
	second, err := d.Discover(context.Background())
	require.NoError(t, err, "second discovery must not redefine instructions")
	assert.Equal(t, first, second)
}

func TestDiscover_ConflictAcrossOwners(t *testing.T) {
	root := t.TempDir()
	// "Shop" and "Shop Extra" share the shop prefix family; the same function
	// name in both units is a definition conflict.
	testutil.WritePlugin(t, root, testutil.Plugin{
		Key: "a-shop", Name: "Shop",
		Units: map[string]string{"x.ri.inc": "def shop_ri_1():\n    pass\n"},
	})
	testutil.WritePlugin(t, root, testutil.Plugin{
		Key: "b-shop", Name: "Shop",
		Units: map[string]string{"x.ri.inc": "def shop_ri_1():\n    pass\n"},
	})

	d := newTestDiscoverer(t, root, nil)
	_, err := d.Discover(context.Background())
	require.Error(t, err)
	assert.True(t, ir.IsConflict(err))
}

func TestDiscover_CanceledContext(t *testing.T) {
	root := t.TempDir()
	testutil.WritePlugin(t, root, testutil.ShopPlugin())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := newTestDiscoverer(t, root, nil)
	_, err := d.Discover(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
