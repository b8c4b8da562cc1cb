// Package discovery finds release instructions contributed by owners.
//
// Discovery runs in three steps, each exposed on its own for testing:
//
//  1. ListOwners: active owners whose manifest declares the "ri" capability,
//     in lexical key order.
//  2. ListSourceUnits: for each owner, the files matching ri/*.ri.inc under
//     the owner's directory, in lexical path order.
//  3. LoadAndExtract: executes a unit once (Starlark) and registers its
//     top-level callables that match the owner's naming pattern.
//
// # Registration Table
//
// Callables are never looked up by scanning a flat global namespace. A unit
// registers what it defines into a Registry, with owner and version attached
// at registration time. A callable therefore only ever counts for the owner
// whose unit defined it. Registering a name twice is a ConflictError.
//
// # Unavailable Conventions
//
// A missing plugins directory, or an owner without an ri/ directory, yields
// empty results rather than errors. Callers see "Nothing to execute."
package discovery
