package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/hotload/internal/core/domain"
)

// NodeID is the unique identifier for the configuration Graft node.
const NodeID graft.ID = "adapter.config"

func init() {
	graft.Register(graft.Node[*domain.Config]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (*domain.Config, error) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			return Resolve("", cwd)
		},
	})
}
