// Package calibration defines the incline-sensor calibration workflow. It
// contains:
//
//   - Phase: the discrete steps of the calibration state machine
//   - State: the runtime state owned by the session
//   - Event: the inputs the machine reacts to
//   - Machine: a pure reducer from (State, Event) to the next State
//
// Nothing here touches presentation or I/O. The session and daemon packages
// own locking, notifications and rendering.
package calibration
