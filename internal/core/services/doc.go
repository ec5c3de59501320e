// Package services implements the driving port interfaces.
// Services contain the matching, dedup and review logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO or external dependencies beyond the
// driven ports they are constructed with.
package services
