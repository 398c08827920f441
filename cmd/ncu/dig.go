package main

import (
	"net/http"

	"go.uber.org/dig"

	"github.com/forgeutils/check-updates/application"
	"github.com/forgeutils/check-updates/config"
	"github.com/forgeutils/check-updates/domain"
	detectorPkg "github.com/forgeutils/check-updates/infrastructure/detector"
	parserPkg "github.com/forgeutils/check-updates/infrastructure/parser"
	"github.com/forgeutils/check-updates/infrastructure/parser/npm"
	registryPkg "github.com/forgeutils/check-updates/infrastructure/registry"
	"github.com/forgeutils/check-updates/infrastructure/registry/npmjs"
	"github.com/forgeutils/check-updates/infrastructure/render"
)

func newParserRegistry() *parserPkg.Registry {
	registry := parserPkg.NewRegistry()
	registry.Register(npm.NewPackageJSONParser())
	registry.RegisterLock(npm.NewPackageLockReader())
	registry.RegisterLock(npm.NewYarnLockReader())
	return registry
}

func registerProviders(container *dig.Container) error {
	providers := []any{
		config.LoadOrDefault,
		func(cfg *config.Config) *http.Client {
			return registryPkg.NewHTTPClient(cfg.Timeout())
		},
		func(cfg *config.Config, client *http.Client) *registryPkg.Registry {
			registries := registryPkg.NewRegistry()
			registries.Register(npmjs.New(client, cfg.RegistryURL("npm")))
			return registries
		},
		func(registries *registryPkg.Registry) domain.Registry {
			return registries.Get("npm")
		},
		newParserRegistry,
		detectorPkg.NewDetector,
		func(cfg *config.Config, registry domain.Registry) *application.Resolver {
			return application.NewResolver(registry, cfg.Concurrency)
		},
		application.NewPlanner,
		func() *render.Renderer { return render.NewRenderer(nil) },
		application.NewCheckService,
	}
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return err
		}
	}
	return nil
}

func injectCheckService() *application.CheckService {
	container := dig.New()

	if err := registerProviders(container); err != nil {
		panic(err)
	}

	var service *application.CheckService
	if err := container.Invoke(func(s *application.CheckService) {
		service = s
	}); err != nil {
		panic(err)
	}
	return service
}
