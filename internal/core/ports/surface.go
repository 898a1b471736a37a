package ports

import "go.trai.ch/hotload/internal/core/domain"

// Surface is the hosting UI that receives run outcomes.
// A cancelled run reports nothing.
//
//go:generate mockgen -source=surface.go -destination=mocks/mock_surface.go -package=mocks
type Surface interface {
	ReportSuccess(result any)
	ReportFailure(failure domain.Failure)
}
