package shiftid

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/NotCoffee418/filling_machine_monitor/pkg/registers"
	"github.com/NotCoffee418/filling_machine_monitor/pkg/sfmutils"
)

// DefaultMachineNumber is used when a machine id carries no digits.
const DefaultMachineNumber = 1

var machineNumberPattern = regexp.MustCompile(`\d+`)

// Identity is the resolved shift reported by one machine.
type Identity struct {
	MachineNumber int
	Sequence      uint32
	Key           string
}

// Active is false when the machine reports sequence 0, meaning no shift is running.
func (id Identity) Active() bool {
	return id.Sequence != 0
}

// ParseMachineNumber takes the first run of digits in a machine id ("SALT-02" -> 2).
func ParseMachineNumber(machineID string) int {
	match := machineNumberPattern.FindString(machineID)
	if match == "" {
		return DefaultMachineNumber
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return DefaultMachineNumber
	}
	return n
}

// Key formats the unique shift key.
func Key(machineNumber int, sequence uint32) string {
	return fmt.Sprintf("M%d_S%d", machineNumber, sequence)
}

// Resolve builds the shift identity from the admin block's shift id registers.
func Resolve(admin registers.Block, machineNumber int) Identity {
	seq := sfmutils.Combine32(admin.Word(registers.ShiftIDLow), admin.Word(registers.ShiftIDHigh))
	return Identity{
		MachineNumber: machineNumber,
		Sequence:      seq,
		Key:           Key(machineNumber, seq),
	}
}
