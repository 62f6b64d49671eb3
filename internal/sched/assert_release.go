//go:build release

package sched

const assertions = false
