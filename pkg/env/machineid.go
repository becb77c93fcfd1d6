package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
)

// MachineID retrieves an ID identifying the machine, protected with the
// application name so the raw machine ID is not exposed on the broker.
// Falls back to the hostname when the machine ID is unavailable.
func MachineID() string {
	if id, err := machineid.ProtectedID("xrlink"); err == nil {
		return id[:16]
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "xrlink"
}
