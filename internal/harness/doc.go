// Package harness runs scripted scheduler scenarios and checks the
// lifecycle trace they produce.
//
// # Scenario Format
//
// Scenarios are YAML files (or CUE files, validated against an embedded
// schema) with the following structure:
//
//	name: arm_handoff
//	description: "default command returns after the owner finishes"
//	ticks: 6
//	period: 20ms
//	resources: [arm, claw]
//	commands:
//	  - name: hold
//	    kind: cycles          # instant | wait | cycles | sequence | parallel
//	    requires: [arm]
//	    params: { ticks: 0 }  # 0 = never finishes
//	  - name: raise
//	    kind: cycles
//	    requires: [arm]
//	    params: { ticks: 2 }
//	defaults: { arm: hold }
//	inputs:
//	  button_a: [[2, 3]]      # true on ticks 2..3
//	bindings:
//	  - trigger: button_a     # '!', '&', '|' and parentheses combine inputs
//	    kind: on_rising_edge
//	    commands: [raise]
//	steps:
//	  - tick: 5
//	    gate: disable
//	assertions:
//	  - type: trace_order
//	    order:
//	      - { event: finish, command: raise }
//	      - { event: initialize, command: hold }
//
// Command params are decoded per kind: wait takes duration, cycles takes
// ticks and runs_when_disabled, groups take children (which must be
// declared earlier in the file).
//
// # Assertion Types
//
//   - trace_contains: an event matching event/command/tick occurred
//   - trace_order: events occurred in the listed relative order
//   - trace_count: exactly count events matched
//   - running: the final running set, in admission order
//   - owner: the final owner of a resource (empty command means idle)
//
// # Deterministic Testing
//
// Run uses a manual clock advanced by the scenario period before every
// tick, and a fresh scheduler per run, so a scenario always yields the same
// trace. Events are stamped with the scenario tick; steps for tick k apply
// before the scheduler's k-th Tick, so their events carry tick k too.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/arm_handoff.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
//
// Build exposes the same wiring without the manual clock, for drivers that
// tick in real time.
package harness
