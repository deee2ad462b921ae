package registers

// FieldCode is the holding register address as printed in the machine manual (4xxxx).
type FieldCode uint16

// Monitoring block, always visible to operators.
const (
	OperatingStatus FieldCode = 40001 + iota
	FeedTankStatus
	MaterialType
	TargetWeight
	TotalWeightLow
	TotalWeightHigh
	TotalBottles
	ActiveLines
)

// Admin block, used for shift bookkeeping.
const (
	ShiftIDLow  FieldCode = 40009
	ShiftIDHigh FieldCode = 40010

	StartSecond FieldCode = 40037
	StartMinute FieldCode = 40038
	StartHour   FieldCode = 40039
	StartDay    FieldCode = 40040
	StartMonth  FieldCode = 40041
	StartYear   FieldCode = 40042

	EndSecond FieldCode = 40043
	EndMinute FieldCode = 40044
	EndHour   FieldCode = 40045
	EndDay    FieldCode = 40046
	EndMonth  FieldCode = 40047
	EndYear   FieldCode = 40048
)

const (
	MonitoringCount = 8
	AdminCount      = 40
	// SnapshotSize is the number of registers a full poll returns.
	SnapshotSize = MonitoringCount + AdminCount

	FirstMonitoringCode FieldCode = OperatingStatus
	FirstAdminCode      FieldCode = ShiftIDLow
)

// Block maps field codes to register values.
type Block map[FieldCode]int

// Snapshot is one decoded poll of a machine.
type Snapshot struct {
	Monitoring Block `json:"monitoringData"`
	Admin      Block `json:"adminData"`
}
