// Package harness runs end-to-end release-instruction scenarios.
//
// A scenario describes a plugin tree, an optional initial status mapping,
// a sequence of runner operations, and assertions over the outcome. Run
// materializes the tree in a work directory, opens a SQLite store there,
// and drives a real engine through each step, so scenarios exercise
// discovery, Starlark loading, ordering, execution and persistence
// together.
//
// # Scenario Format
//
//	name: shop
//	description: "Pending instructions run once, in version order"
//	plugins:
//	  - key: shop
//	    name: Shop
//	    units:
//	      001-seed.ri.inc: |
//	        def shop_ri_1():
//	            return "seeded data"
//	status:
//	  shop_ri_0: true
//	steps:
//	  - op: preview
//	  - op: execute_all
//	  - op: execute
//	    arg: "shop_ri_*"
//	  - op: set_status
//	    arg: shop_ri_1
//	    flag: false
//	  - op: execute_all
//	    expect_error: execution
//	assertions:
//	  - type: executed
//	    names: [shop_ri_1]
//	  - type: pending
//	    names: [shop_ri_2]
//	  - type: invocation_order
//	    names: [shop_ri_1, shop_ri_2]
//	  - type: invocation_count
//	    name: shop_ri_1
//	    count: 1
//	  - type: output_contains
//	    severity: notice
//	    message: "Nothing to execute."
//
// # Determinism
//
// Run IDs come from engine.SequenceRunIDs, and every step's output lines
// are captured, so a scenario's Transcript is stable and suitable for
// golden comparison (see RunWithGolden).
package harness
