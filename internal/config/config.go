package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string
	DBPath   string

	// StorageDir is where the filesystem object store keeps evidence
	// images. Empty disables backing-object deletion during sweeps.
	StorageDir string

	// Evidence retention
	RetentionDays      int // horizon before captures become sweepable
	SweepIntervalHours int // how often the background sweeper runs
}

func FromEnv() Config {
	return Config{
		HTTPAddr:           getenvDefault("MERIT_HTTP_ADDR", ":8080"),
		DBPath:             getenvDefault("MERIT_DB_PATH", "./data/merittrack.db"),
		StorageDir:         getenvDefault("MERIT_STORAGE_DIR", "./data/evidence"),
		RetentionDays:      getenvInt("MERIT_RETENTION_DAYS", 60),
		SweepIntervalHours: getenvInt("MERIT_SWEEP_INTERVAL_HOURS", 6),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
