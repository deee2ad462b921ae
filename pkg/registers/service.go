package registers

import "github.com/NotCoffee418/filling_machine_monitor/pkg/sfmutils"

// Decode splits a raw register sequence into the monitoring and admin blocks.
// Short input is zero padded and anything past SnapshotSize is ignored, so decoding never fails.
func Decode(values []uint16) Snapshot {
	snap := Snapshot{
		Monitoring: make(Block, MonitoringCount),
		Admin:      make(Block, AdminCount),
	}
	for i := 0; i < MonitoringCount; i++ {
		snap.Monitoring[FirstMonitoringCode+FieldCode(i)] = valueAt(values, i)
	}
	for i := 0; i < AdminCount; i++ {
		snap.Admin[FirstAdminCode+FieldCode(i)] = valueAt(values, MonitoringCount+i)
	}
	return snap
}

func valueAt(values []uint16, i int) int {
	if i < len(values) {
		return int(values[i])
	}
	return 0
}

// Get returns the value for code, 0 when absent.
func (b Block) Get(code FieldCode) int {
	return b[code]
}

// Word returns the value for code truncated to a 16-bit register.
func (b Block) Word(code FieldCode) uint16 {
	return uint16(b[code])
}

// TotalWeight is the cumulative filled weight in grams reported by the machine.
func (s Snapshot) TotalWeight() int64 {
	return int64(sfmutils.Combine32(s.Monitoring.Word(TotalWeightLow), s.Monitoring.Word(TotalWeightHigh)))
}

// TotalBottles is the cumulative bottle counter reported by the machine.
func (s Snapshot) TotalBottles() int {
	return s.Monitoring.Get(TotalBottles)
}
