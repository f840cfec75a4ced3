//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/notewire/notewire/internal/config"
)

func ProvideApp(ctx context.Context, cfg config.Config) (*App, error) {
	wire.Build(appSet)
	return nil, nil
}
