package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hotload/internal/adapters/config"
	"go.trai.ch/hotload/internal/adapters/logger"
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
)

// NodeID is the unique identifier for the image cache Graft node.
const NodeID graft.ID = "adapter.image_cache"

func init() {
	graft.Register(graft.Node[ports.ImageCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.ImageCache, error) {
			cfg, err := graft.Dep[*domain.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(cfg.CacheRoot, log)
		},
	})
}
