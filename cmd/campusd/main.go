package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/matheus3301/campus/internal/config"
	"github.com/matheus3301/campus/internal/daemon"
	"github.com/matheus3301/campus/internal/instance"
)

func main() {
	instituteFlag := flag.String("institute", "", "institute name (overrides config default)")
	dbFlag := flag.String("db", "", "database URL: postgres://... or a SQLite path (overrides config)")
	redisFlag := flag.String("redis", "", "redis URL for the profile cache (overrides config)")
	flag.Parse()

	cfg, err := config.Resolve(instance.ConfigPath(), instance.EnvFilePath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	institute, err := instance.Select(*instituteFlag, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := instance.EnsureDir(institute); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	p := daemon.Params{
		Institute:   institute,
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
	}
	if *dbFlag != "" {
		p.DatabaseURL = *dbFlag
	}
	if *redisFlag != "" {
		p.RedisURL = *redisFlag
	}

	app := fx.New(daemon.Module(p))
	app.Run()
}
