package config

import (
	"os"
	"strconv"
)

func loadProductionConfig(cfg *Config) {
	if port, err := strconv.Atoi(os.Getenv("PORT")); err == nil {
		cfg.ServerPort = port
	}
	if cacheDir := os.Getenv("CACHE_DIRECTORY"); cacheDir != "" {
		cfg.CacheDir = cacheDir
	}

	dataDir := os.Getenv("DATA_DIRECTORY")
	if dataDir == "" {
		dataDir = "/data"
	}
	cfg.DatabaseFilePath = dataDir + "/data.sqlite"

	if workers, err := strconv.Atoi(os.Getenv("WORKER_PROCESSES")); err == nil && workers > 0 {
		cfg.WorkerProcesses = workers
	}
}
