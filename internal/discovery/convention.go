package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/ri/internal/ir"
)

// Conventional locations of source units inside an owner directory.
const (
	UnitDir    = "ri"
	UnitSuffix = ".ri.inc"
)

// Convention resolves the source units of an owner on disk.
type Convention struct {
	// Root is the plugins directory; owners live in Root/<key>.
	Root string
}

// SourceUnits lists the owner's units in lexical path order.
// A missing Root or ri/ directory yields no units.
func (c Convention) SourceUnits(owner ir.Owner) ([]ir.SourceUnit, error) {
	if c.Root == "" {
		return nil, nil
	}
	dir := filepath.Join(c.Root, owner.Key, UnitDir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list units for %s: %w", owner.Key, err)
	}

	var units []ir.SourceUnit
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), UnitSuffix) {
			continue
		}
		path, err := filepath.Abs(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolve unit %s: %w", e.Name(), err)
		}
		units = append(units, ir.SourceUnit{Owner: owner.Key, Path: path})
	}
	sort.Slice(units, func(i, j int) bool { return units[i].Path < units[j].Path })
	return units, nil
}
