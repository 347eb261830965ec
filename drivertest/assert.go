package drivertest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertNoLeaks fails t when any native object is still live or the driver
// observed a violation such as a double release.
func (d *Driver) AssertNoLeaks(t testing.TB) bool {
	t.Helper()

	ok := assert.Empty(t, describe(d.Live()), "leaked native objects")
	return assert.Empty(t, d.Violations(), "driver violations") && ok
}

// AssertNoViolations fails t when the driver observed a violation. Unlike
// AssertNoLeaks it allows live objects.
func (d *Driver) AssertNoViolations(t testing.TB) bool {
	t.Helper()
	return assert.Empty(t, d.Violations(), "driver violations")
}

func describe(objs []Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		var b strings.Builder
		fmt.Fprintf(&b, "%s %#x", o.Type, uint64(o.Handle))
		if o.Parent != 0 {
			fmt.Fprintf(&b, " (parent %#x)", uint64(o.Parent))
		}
		out[i] = b.String()
	}
	return out
}
