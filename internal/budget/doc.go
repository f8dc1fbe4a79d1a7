// Package budget derives each ad group's effective daily budget and bid
// from its autopilot settings and source allocations, and shrinks those
// budgets when the owning campaign cannot fund them.
//
// Everything here is a pure function over domain snapshots. Nothing logs;
// conditions worth reporting are returned as Warnings next to the value so
// the caller decides whether to log, alert or retry.
package budget
