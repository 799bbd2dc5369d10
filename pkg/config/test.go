package config

func loadTestConfig(cfg *Config) {
	cfg.CacheDir = "./tmp/cache-test"
	cfg.DatabaseFilePath = "file::memory:?cache=shared"
	cfg.ServerHost = "127.0.0.1"
	cfg.ServerPort = 0
	cfg.WorkerProcesses = 1
}
