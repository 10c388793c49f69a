package cerberus

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Wikid82/ipguard/internal/logger"
	"github.com/Wikid82/ipguard/internal/metrics"
)

// FailurePolicy is the gate outcome when the denylist cannot be consulted.
type FailurePolicy string

// FailOpen lets the request through when the denylist lookup fails.
const FailOpen FailurePolicy = "open"

// DenylistFailurePolicy applies to every gate. Availability of the protected
// service outranks denylist enforcement, so a lookup error never blocks.
const DenylistFailurePolicy = FailOpen

func (p FailurePolicy) blocked() bool {
	return p != FailOpen
}

// DenylistChecker reports whether an address is barred.
type DenylistChecker interface {
	IsBlocked(ctx context.Context, address string) (bool, error)
}

// Gate decides whether a resolved address may proceed.
type Gate struct {
	denylist DenylistChecker
	log      *logrus.Entry
}

// NewGate returns a Gate reading from denylist.
func NewGate(denylist DenylistChecker, log *logrus.Entry) *Gate {
	return &Gate{denylist: denylist, log: logger.OrDefault(log, "gate")}
}

// Blocked reports whether address is on the denylist. Lookup errors and
// panics are logged and resolved by DenylistFailurePolicy.
func (g *Gate) Blocked(ctx context.Context, address string) (blocked bool) {
	defer func() {
		if r := recover(); r != nil {
			g.lookupFailed(address, fmt.Errorf("panic: %v", r))
			blocked = DenylistFailurePolicy.blocked()
		}
	}()

	blocked, err := g.denylist.IsBlocked(ctx, address)
	if err != nil {
		g.lookupFailed(address, err)
		return DenylistFailurePolicy.blocked()
	}
	return blocked
}

func (g *Gate) lookupFailed(address string, err error) {
	metrics.IncGateError()
	g.log.WithFields(logrus.Fields{
		"address": address,
		"policy":  string(DenylistFailurePolicy),
	}).WithError(err).Error("Error checking denylist")
}
