package main

import (
	"net/http"
	"os"

	"go.uber.org/dig"

	"github.com/forgeutils/check-updates/application"
	"github.com/forgeutils/check-updates/config"
	"github.com/forgeutils/check-updates/domain"
	detectorPkg "github.com/forgeutils/check-updates/infrastructure/detector"
	globalPkg "github.com/forgeutils/check-updates/infrastructure/global"
	parserPkg "github.com/forgeutils/check-updates/infrastructure/parser"
	"github.com/forgeutils/check-updates/infrastructure/parser/python"
	registryPkg "github.com/forgeutils/check-updates/infrastructure/registry"
	"github.com/forgeutils/check-updates/infrastructure/registry/pypi"
	"github.com/forgeutils/check-updates/infrastructure/render"
)

// appContext bundles the services the command layer drives.
type appContext struct {
	checks  *application.CheckService
	globals *application.GlobalService
}

func newParserRegistry() *parserPkg.Registry {
	registry := parserPkg.NewRegistry()
	registry.Register(python.NewRequirementsParser())
	registry.Register(python.NewPyprojectParser())
	registry.Register(python.NewCondaParser())
	registry.RegisterLock(python.NewLockReader())
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
			registries.Register(pypi.New(client, cfg.RegistryURL("pypi")))
			return registries
		},
		func(registries *registryPkg.Registry) domain.Registry {
			return registries.Get("pypi")
		},
		newParserRegistry,
		detectorPkg.NewDetector,
		func(cfg *config.Config, registry domain.Registry) *application.Resolver {
			return application.NewResolver(registry, cfg.Concurrency)
		},
		application.NewPlanner,
		func() *render.Renderer { return render.NewRenderer(nil) },
		func() *globalPkg.Discovery {
			home, _ := os.UserHomeDir()
			return globalPkg.NewDiscovery(globalPkg.ExecRunner{}, home)
		},
		func(client *http.Client) globalPkg.ReleaseIndex {
			return globalPkg.NewEndOfLifeIndex(client, "")
		},
		func(index globalPkg.ReleaseIndex) *globalPkg.RuntimeChecker {
			return globalPkg.NewRuntimeChecker(globalPkg.ExecRunner{}, index)
		},
		application.NewCheckService,
		application.NewGlobalService,
	}
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return err
		}
	}
	return nil
}

func injectAppContext() *appContext {
	container := dig.New()

	if err := registerProviders(container); err != nil {
		panic(err)
	}

	var app *appContext
	err := container.Invoke(func(checks *application.CheckService, globals *application.GlobalService) {
		app = &appContext{checks: checks, globals: globals}
	})
	if err != nil {
		panic(err)
	}
	return app
}
