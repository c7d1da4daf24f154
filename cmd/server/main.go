package main

import (
	"campaign-generator/internal/app/server"
	"campaign-generator/internal/config"
)

func main() {
	cfg, v := config.Load()
	config.SetupLogging(cfg.Server.LogLevel, cfg.Server.LogFormat)
	server.Run(cfg, v)
}
