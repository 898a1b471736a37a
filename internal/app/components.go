package app

import "go.trai.ch/hotload/internal/core/ports"

// Components holds the resolved dependencies of the CLI.
type Components struct {
	App    *App
	Logger ports.Logger
}
