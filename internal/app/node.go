package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/hotload/internal/adapters/cas"        //nolint:depguard // Wired in app layer
	"go.trai.ch/hotload/internal/adapters/config"     //nolint:depguard // Wired in app layer
	"go.trai.ch/hotload/internal/adapters/logger"     //nolint:depguard // Wired in app layer
	"go.trai.ch/hotload/internal/adapters/telemetry"  //nolint:depguard // Wired in app layer
	"go.trai.ch/hotload/internal/adapters/translator" //nolint:depguard // Wired in app layer
	"go.trai.ch/hotload/internal/core/domain"
	"go.trai.ch/hotload/internal/core/ports"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			cas.NodeID,
			translator.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: app, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	cfg, err := graft.Dep[*domain.Config](ctx)
	if err != nil {
		return nil, err
	}

	cache, err := graft.Dep[ports.ImageCache](ctx)
	if err != nil {
		return nil, err
	}

	tr, err := graft.Dep[ports.Translator](ctx)
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

	return New(cfg, cache, tr, log, tracer), nil
}
