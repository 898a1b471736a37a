package translator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hotload/internal/adapters/config"
	"go.trai.ch/hotload/internal/adapters/logger"
	"go.trai.ch/hotload/internal/adapters/telemetry"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
)

// NodeID is the unique identifier for the translator Graft node.
const NodeID graft.ID = "adapter.translator"

func init() {
	graft.Register(graft.Node[ports.Translator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID, telemetry.NodeID},
		Run: func(ctx context.Context) (ports.Translator, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}
			return New(cfg.Translator, cfg.ScratchDir, log, tracer), nil
		},
	})
}
