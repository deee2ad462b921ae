package pathing

import (
	"log"
	"os"
	"path/filepath"
)

// Ensure directories exist on startup
func init() {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
		GetConfigDir(),
	}

	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				log.Printf("Warning: could not create %s: %v", dir, err)
			}
		}
	}
}

func GetShiftDbPath() string {
	return filepath.Join(GetDataDir(), "shift-tracker.db")
}

func GetDataDir() string {
	if dir := os.Getenv("FMM_DATA_DIR"); dir != "" {
		return dir
	}
	return "/var/lib/filling_machine_monitor"
}

func GetConfigDir() string {
	if dir := os.Getenv("FMM_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/filling_machine_monitor"
}
