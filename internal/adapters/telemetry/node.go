package telemetry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hotload/internal/adapters/config"
	"go.trai.ch/hotload/internal/adapters/logger"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
)

// NodeID is the unique identifier for the Telemetry adapter Graft node.
const NodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.Tracer, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			if !cfg.Trace {
				return NewNoOpTracer(), nil
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewOTelTracer("hotload", NewLogBridge(log)), nil
		},
	})
}
