//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/mealplan-ai/internal/bootstrap"
	"github.com/yanqian/mealplan-ai/internal/domain/mealplan"
	"github.com/yanqian/mealplan-ai/internal/infra/config"
	httpiface "github.com/yanqian/mealplan-ai/internal/interface/http"
	"github.com/yanqian/mealplan-ai/pkg/logger"
)

func initializeApp() (*bootstrap.App, func(), error) {
	wire.Build(
		config.Load,
		logger.New,
		provideMealPlanConfig,
		provideCompleter,
		provideTokenCounter,
		provideArtifactStore,
		provideGenerationLog,
		provideJobBackend,
		provideJobService,
		provideJobWorker,
		provideAuthService,
		mealplan.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil, nil
}
