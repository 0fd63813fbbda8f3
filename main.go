package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mrlokans/posdz/internal/cli"
	"github.com/mrlokans/posdz/internal/config"
	"github.com/mrlokans/posdz/internal/logging"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	cfg := config.NewConfig()
	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.L().Debug("build", zap.String("version", Version), zap.String("commit", Commit))

	if err := cli.NewRootCommand(Version).Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}
