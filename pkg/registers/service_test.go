package registers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence(n int) []uint16 {
	values := make([]uint16, n)
	for i := range values {
		values[i] = uint16(i + 1)
	}
	return values
}

func TestDecodeFullSnapshot(t *testing.T) {
	snap := Decode(sequence(SnapshotSize))

	require.Len(t, snap.Monitoring, MonitoringCount)
	require.Len(t, snap.Admin, AdminCount)
	assert.Equal(t, 1, snap.Monitoring.Get(OperatingStatus))
	assert.Equal(t, 8, snap.Monitoring.Get(ActiveLines))
	assert.Equal(t, 9, snap.Admin.Get(ShiftIDLow))
	assert.Equal(t, 10, snap.Admin.Get(ShiftIDHigh))
	assert.Equal(t, 37, snap.Admin.Get(StartSecond))
	assert.Equal(t, 48, snap.Admin.Get(EndYear))
}

func TestDecodeShortInputIsZeroPadded(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 9, 20, 47} {
		snap := Decode(sequence(n))
		require.Len(t, snap.Monitoring, MonitoringCount)
		require.Len(t, snap.Admin, AdminCount)

		for i := 0; i < SnapshotSize; i++ {
			var got int
			if i < MonitoringCount {
				got = snap.Monitoring.Get(FirstMonitoringCode + FieldCode(i))
			} else {
				got = snap.Admin.Get(FirstAdminCode + FieldCode(i-MonitoringCount))
			}
			if i < n {
				assert.Equal(t, i+1, got, "len=%d index=%d", n, i)
			} else {
				assert.Zero(t, got, "len=%d index=%d", n, i)
			}
		}
	}
}

func TestDecodeNilAndOversized(t *testing.T) {
	snap := Decode(nil)
	assert.Zero(t, snap.TotalWeight())
	assert.Zero(t, snap.TotalBottles())

	snap = Decode(sequence(60))
	assert.Len(t, snap.Admin, AdminCount)
	assert.Equal(t, 48, snap.Admin.Get(EndYear))
}

func TestSnapshotCounters(t *testing.T) {
	values := make([]uint16, SnapshotSize)
	values[4] = 45000 // weight low
	values[5] = 1     // weight high
	values[6] = 120   // bottles
	snap := Decode(values)

	assert.Equal(t, int64(65536+45000), snap.TotalWeight())
	assert.Equal(t, 120, snap.TotalBottles())
}

func TestSnapshotJSONUsesFieldCodes(t *testing.T) {
	values := make([]uint16, SnapshotSize)
	values[0] = 1
	data, err := json.Marshal(Decode(values))
	require.NoError(t, err)

	var raw map[string]map[string]int
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 1, raw["monitoringData"]["40001"])
	assert.Contains(t, raw["adminData"], "40048")
}
