// Package cached decorates the repositories with read-through caching.
// Keys are namespaced as <entity>:<userID>:... and the whole
// <entity>:<userID> prefix is invalidated on every write, before the
// write is reported as done. The wrappers are optional: everything
// works, and every invariant holds, with the bare repositories.
package cached

import (
	"time"
)

const (
	invoicePrefix = "invoice"
	balancePrefix = "balance"

	invoiceTTL = 5 * time.Minute
	balanceTTL = 3 * time.Minute
)
