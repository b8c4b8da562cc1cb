package discovery

import (
	"context"
	"fmt"

	"github.com/roach88/ri/internal/ir"
)

// OwnerRegistry lists owners eligible for discovery.
type OwnerRegistry interface {
	ListActiveOwnersWithCapability() ([]ir.Owner, error)
}

// UnitLister resolves the source units of one owner.
type UnitLister interface {
	SourceUnits(owner ir.Owner) ([]ir.SourceUnit, error)
}

// Group is the instructions one owner contributed, in discovery order.
type Group struct {
	Owner        ir.Owner
	Instructions []ir.Instruction
}

// Discoverer wires owners, units and the loader together.
type Discoverer struct {
	owners OwnerRegistry
	units  UnitLister
	loader *Loader
}

// New creates a Discoverer.
func New(owners OwnerRegistry, units UnitLister, loader *Loader) *Discoverer {
	return &Discoverer{owners: owners, units: units, loader: loader}
}

// Registry returns the registry populated by discovery.
func (d *Discoverer) Registry() *Registry {
	return d.loader.Registry()
}

// ListOwners returns active owners with the ri capability.
func (d *Discoverer) ListOwners() ([]ir.Owner, error) {
	owners, err := d.owners.ListActiveOwnersWithCapability()
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

// ListSourceUnits returns (owner, unit) pairs for every active owner,
// owners in ListOwners order and units in path order.
func (d *Discoverer) ListSourceUnits() ([]ir.SourceUnit, error) {
	owners, err := d.ListOwners()
	if err != nil {
		return nil, err
	}
	var units []ir.SourceUnit
	for _, o := range owners {
		us, err := d.units.SourceUnits(o)
		if err != nil {
			return nil, err
		}
		units = append(units, us...)
	}
	return units, nil
}

// LoadAndExtract loads one unit on behalf of owner.
func (d *Discoverer) LoadAndExtract(ctx context.Context, owner ir.Owner, unit ir.SourceUnit) ([]ir.Instruction, error) {
	return d.loader.LoadAndExtract(ctx, owner, unit)
}

// Discover loads every unit of every owner and groups the results.
//
// Go-registered instructions belonging to a listed owner are included too,
// after the owner's unit-defined ones. Owners that contribute nothing are
// omitted. Any load or conflict error aborts discovery.
func (d *Discoverer) Discover(ctx context.Context) ([]Group, error) {
	owners, err := d.ListOwners()
	if err != nil {
		return nil, err
	}

	var groups []Group
	for _, o := range owners {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		units, err := d.units.SourceUnits(o)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool)
		var insts []ir.Instruction
		for _, u := range units {
			got, err := d.loader.LoadAndExtract(ctx, o, u)
			if err != nil {
				return nil, err
			}
			for _, inst := range got {
				seen[inst.Name] = true
				insts = append(insts, inst)
			}
		}
		for _, inst := range d.loader.Registry().Owned(o.Key) {
			if !seen[inst.Name] {
				insts = append(insts, inst)
			}
		}

		if len(insts) > 0 {
			groups = append(groups, Group{Owner: o, Instructions: insts})
		}
	}
	return groups, nil
}
