// Foodingo API server - exposes recipes and cooking sessions over REST
// plus a per-session websocket for real-time progress.
package main

import (
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/foodingo/foodingo/internal/config"
	"github.com/foodingo/foodingo/internal/log"
	"github.com/foodingo/foodingo/pkg/recipe"
	"github.com/foodingo/foodingo/pkg/resolver"
	"github.com/foodingo/foodingo/pkg/session"
	"github.com/foodingo/foodingo/pkg/web"
)

func main() {
	env, err := config.Load()
	if err != nil {
		stdlog.Fatalf("configuration error: %v", err)
	}
	log.Init(env.LogLevel)
	logger := log.L()

	catalog, closeCatalog := openCatalog(env)
	defer closeCatalog()

	res := buildResolver(env)
	defer res.Close()

	sessions := session.NewManager(logger)
	sessions.SetTranscriptMax(env.TranscriptMax)

	server := web.NewServer(sessions, catalog, res, logger)

	// Serve until interrupted, then drain connections.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		if err := server.Shutdown(); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	if err := server.Start(env.Port); err != nil {
		stdlog.Fatalf("server error: %v", err)
	}
}

func openCatalog(env *config.Config) (recipe.Provider, func()) {
	cat, err := recipe.NewSQLite(env.DBPath)
	if err != nil {
		log.Warn("recipe database unavailable, using built-in recipes", "path", env.DBPath, "error", err)
		return recipe.NewMemoryCatalog(), func() {}
	}
	return cat, func() {
		if err := cat.Close(); err != nil {
			log.Warn("closing recipe database", "error", err)
		}
	}
}

func buildResolver(env *config.Config) resolver.Resolver {
	if env.OpenAIKey == "" {
		log.Info("no OpenAI key, using keyword rules resolver")
		return resolver.NewRules()
	}
	res, err := resolver.NewOpenAI(env.OpenAIKey,
		resolver.WithModel(env.ResolverModel),
		resolver.WithTimeout(env.ResolverTimeout),
		resolver.WithLogger(log.L()),
	)
	if err != nil {
		log.Warn("OpenAI resolver unavailable, using keyword rules", "error", err)
		return resolver.NewRules()
	}
	return res
}
