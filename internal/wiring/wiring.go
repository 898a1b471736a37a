// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/hotload/internal/adapters/cas"
	_ "go.trai.ch/hotload/internal/adapters/config"
	_ "go.trai.ch/hotload/internal/adapters/logger"
	_ "go.trai.ch/hotload/internal/adapters/telemetry"
	_ "go.trai.ch/hotload/internal/adapters/translator"
	// Register app nodes.
	_ "go.trai.ch/hotload/internal/app"
)
