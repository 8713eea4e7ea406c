// Package harness runs scripted scenarios against Flux documents.
//
// A scenario loads one document, applies a list of steps, ticks and
// events, and checks the final docstep, time, parameters and slot markup.
// Every run is journaled into an in-memory store and replayed, so a
// scenario also proves the run is deterministic.
//
// # Scenario Format
//
//	name: counter_events
//	description: "Docstep and parameter slots follow steps and events"
//	document: ../docs/counter.yaml
//	seed: 7
//	actions:
//	  - step: 2
//	  - event: {type: param.set, payload: {name: mood, value: bright}}
//	  - tick: 0.5
//	  - step: 1
//	expect:
//	  docstep: 3
//	  time: 0.5
//	  params: {mood: bright}
//	  slots_changed: [step]
//	  slots: {step: "3", mood: bright}
//	  events_applied: 1
//
// # Expectations
//
//   - docstep, time: final position
//   - params: subset match on parameter values
//   - slots_changed: slots the last action changed
//   - slots: inner markup of named slots
//   - events_applied: accepted events over the whole run
//
// # Golden Files
//
// RunWithGolden compares the canonical bytes of the final render IR
// against testdata/golden/{name}.golden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/counter_events.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
