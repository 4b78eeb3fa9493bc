package ports

import (
	"context"

	"github.com/NominalSystems/go-nominal-example/internal/domain"
)

type Sink interface {
	WriteSeries(ctx context.Context, s *domain.Series) error
	Name() string
}
