package main

import (
	"fmt"

	"marginalia/internal/app"
	"marginalia/internal/config"
	"marginalia/internal/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := util.NewLogger(cfg.Env)

	// Initialize router
	router := app.NewRouter(cfg, log)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	log.Info().Str("addr", addr).Msg("server starting")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}
