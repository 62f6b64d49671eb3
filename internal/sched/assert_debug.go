//go:build !release

package sched

// assertions enables contract checks. Build with -tags release to drop them.
const assertions = true
