// Foodingo - voice-guided cooking assistant.
// Talks a cook through a recipe step by step, listening for commands
// and kitchen emergencies between instructions.
package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"os/signal"
	"syscall"

	"github.com/foodingo/foodingo/internal/config"
	"github.com/foodingo/foodingo/internal/log"
	"github.com/foodingo/foodingo/pkg/app"
	"github.com/foodingo/foodingo/pkg/audioio"
)

func main() {
	cfg := app.DefaultConfig()

	recipeID := flag.String("recipe", cfg.RecipeID, "Recipe ID to cook")
	typed := flag.Bool("typed", false, "Typed input only, no microphone or speaker")
	backend := flag.String("audio", string(cfg.AudioBackend), "Audio backend: portaudio, mock")
	flag.Parse()

	env, err := config.Load()
	if err != nil {
		stdlog.Fatalf("configuration error: %v", err)
	}
	log.Init(env.LogLevel)

	cfg.RecipeID = *recipeID
	cfg.TypedOnly = *typed
	cfg.AudioBackend = audioio.Backend(*backend)
	cfg.Env = env
	cfg.Logger = log.L()

	a, err := app.New(cfg)
	if err != nil {
		stdlog.Fatalf("configuration error: %v", err)
	}

	if err := a.Init(); err != nil {
		stdlog.Fatalf("initialization failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		stdlog.Fatalf("runtime error: %v", err)
	}
}
