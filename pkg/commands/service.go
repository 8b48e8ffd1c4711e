package commands

import (
	"tableflip.dev/colcon/pkg/app"
	"tableflip.dev/colcon/pkg/logging"
	"tableflip.dev/colcon/pkg/store"
)

// openService loads the configuration, opens the log file and builds the
// service. The returned func flushes the log.
func openService() (*app.Service, func(), error) {
	cfg, err := store.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, closeLog, err := logging.New(logging.Options{
		File:    cfg.LogFile(),
		Level:   cfg.LogLevel(),
		Verbose: vo.Verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	svc, err := app.Open(cfg, app.WithLogger(log))
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	return svc, closeLog, nil
}
