package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// Plugin describes an owner directory written by WritePlugin.
type Plugin struct {
	// Key is the directory name under the plugins root.
	Key string

	// Name is the display name written to plugin.yaml.
	Name string

	// NoRI leaves the ri capability flag false.
	NoRI bool

	// Units maps file names inside ri/ to Starlark source.
	Units map[string]string
}

// WritePlugin creates root/<Key>/plugin.yaml and root/<Key>/ri/<units>.
func WritePlugin(t *testing.T, root string, p Plugin) {
	t.Helper()

	dir := filepath.Join(root, p.Key)
	if err := os.MkdirAll(filepath.Join(dir, "ri"), 0o755); err != nil {
		t.Fatalf("create plugin dir: %v", err)
	}

	manifest := fmt.Sprintf("name: %q\nversion: \"1.0.0\"\nri: %t\n", p.Name, !p.NoRI)
	if err := os.WriteFile(filepath.Join(dir, "plugin.yaml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	for name, src := range p.Units {
		if err := os.WriteFile(filepath.Join(dir, "ri", name), []byte(src), 0o644); err != nil {
			t.Fatalf("write unit %s: %v", name, err)
		}
	}
}

// ShopPlugin returns the two-instruction "Shop" owner used across tests:
// shop_ri_1 returns "seeded data", shop_ri_2 returns nothing.
func ShopPlugin() Plugin {
	return Plugin{
		Key:  "shop",
		Name: "Shop",
		Units: map[string]string{
			"001-seed.ri.inc": `
def shop_ri_1():
    options.set("shop_seeded", True)
    return "seeded data"

def shop_ri_2():
    pass
`,
		},
	}
}
