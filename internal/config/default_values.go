package config

const (
	DefaultAPIBaseURL   = "http://localhost:8000"
	DefaultAPITimeoutMS = 30000

	BackendSQLite = "sqlite"
	BackendMemory = "memory"

	ModeAuto = "auto"
	ModeTUI  = "tui"
	ModeREPL = "repl"
)
