package types

// Machine is the descriptor of one polled filling machine.
type Machine struct {
	MachineID   string `json:"machineId"`
	Name        string `json:"name"`
	UserID      string `json:"userId"`
	IsConnected bool   `json:"isConnected"`
}
