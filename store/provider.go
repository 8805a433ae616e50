package store

import (
	"github.com/WaqasAhmad313/next-auth-app/database"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		func() *database.ModelsOption { return database.WithModels(Models()...) },
		fx.Annotate(New, fx.As(new(Repository))),
	),
)
