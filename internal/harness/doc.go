// Package harness runs query scenarios against a real store and engine.
//
// A scenario names a CUE model directory and a YAML data file, loads them
// into a fresh store, evaluates a list of queries and checks their outcomes.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: ../sample/model
//	data: ../sample/data.yaml
//	store: sqlite          # or memory
//	steps:
//	  - name: parameters
//	    query:
//	      select:
//	        - {element: TestStep, column: Id}
//	        - {element: ParameterSet, column: Id}
//	      join:
//	        - {source: TestStep, target: ParameterSet, relation: parameters}
//	    expect:
//	      joined: true
//	      rows: {TestStep: 3}
//	  - name: unknown
//	    query:
//	      select: [{element: TestStep, column: Colour}]
//	    expect:
//	      error: NOT_FOUND
//	assertions:
//	  - type: column_values
//	    step: parameters
//	    element: ParameterSet
//	    column: Id
//	    values: ["20", "21", "22"]
//
// Queries use the query-file form of package schema.
//
// # Assertion Types
//
//   - row_count: an element of a step has exactly count rows
//   - column_values: a column holds exactly the given values; null is "no value"
//   - column_order: an element's columns are exactly the given names
//   - same_result: two steps produced identical outcomes
//
// # Deterministic Testing
//
// Every evaluation uses a fixed evaluation id (scenario eval_id, default
// "test-eval") and stores return rows in insertion order, so outcomes are
// reproducible and can be compared with golden files (see RunWithGolden).
package harness
