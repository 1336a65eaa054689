// SPDX-License-Identifier: GPL-3.0-or-later

package dnssim

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientTableAdmitsUpToMax(t *testing.T) {
	const max = 4
	ct := newClientTable(max)

	for i := 0; i < max; i++ {
		addr := netip.MustParseAddr("0.0.0.0")
		for range i {
			addr = addr.Next()
		}
		key, ok := ct.Key(addr)
		require.True(t, ok, "client %d should be admitted", i)
		assert.Equal(t, uint32(i), key)
	}
	assert.Equal(t, max, ct.Len())
}

func TestClientTableDiscardsKeyBeyondMax(t *testing.T) {
	const max = 4

	// The destination yields raw key 7, which is out of range for a
	// table sized for keys [0, 4) — this is scenario #4 from the
	// round-trip properties: discarded, not admitted.
	ct := newClientTable(max)
	addr := netip.MustParseAddr("0.0.0.7")

	_, ok := ct.Key(addr)
	assert.False(t, ok)
	assert.Equal(t, 0, ct.Len())
}

func TestClientTableBoundaryKeyIsAdmitted(t *testing.T) {
	const max = 4
	ct := newClientTable(max)

	// Key == max-1 is admitted, key == max is discarded.
	_, ok := ct.Key(netip.MustParseAddr("0.0.0.3"))
	assert.True(t, ok)
	_, ok = ct.Key(netip.MustParseAddr("0.0.0.4"))
	assert.False(t, ok)
}

func TestClientTableKeyIsDerivedFromAddressBytesNotAdmissionOrder(t *testing.T) {
	const max = 8
	ct := newClientTable(max)

	// Admit a high-numbered key first: it must not be remapped to 0
	// just because it is the first address the table has ever seen.
	first, ok := ct.Key(netip.MustParseAddr("0.0.0.5"))
	require.True(t, ok)
	assert.Equal(t, uint32(5), first)

	second, ok := ct.Key(netip.MustParseAddr("0.0.0.2"))
	require.True(t, ok)
	assert.Equal(t, uint32(2), second)
}

func TestClientTableKeyTreatsIPv4MappedIPv6AsIPv4(t *testing.T) {
	const max = 8
	ct := newClientTable(max)

	key, ok := ct.Key(netip.MustParseAddr("::ffff:0.0.0.2"))
	require.True(t, ok)
	assert.Equal(t, uint32(2), key)
}

func TestClientTableKeyIsStableForKnownClient(t *testing.T) {
	ct := newClientTable(8)
	addr := netip.MustParseAddr("0.0.0.3")

	k1, ok := ct.Key(addr)
	require.True(t, ok)
	k2, ok := ct.Key(addr)
	require.True(t, ok)
	assert.Equal(t, k1, k2)
}

func TestClientTableSlotAccounting(t *testing.T) {
	ct := newClientTable(4)
	addr := netip.MustParseAddr("0.0.0.1")

	key, ok := ct.Key(addr)
	require.True(t, ok)

	slot := ct.Slot(key)
	slot.Total++
	slot.Total++
	slot.Answered++
	slot.NoError++

	again := ct.Slot(key)
	assert.Equal(t, uint64(2), again.Total)
	assert.Equal(t, uint64(1), again.Answered)
	assert.Equal(t, uint64(1), again.NoError)
	assert.LessOrEqual(t, again.Answered, again.Total)
	assert.LessOrEqual(t, again.NoError, again.Answered)
}
