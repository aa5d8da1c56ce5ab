package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/matchmaker/internal/logger"
	"github.com/spigell/matchmaker/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the suggestions HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "listen address (default :8080)")
	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the matchmaker api", zap.String("version", version))
	logConfig(logger, config)

	c, err := build(ctx, config, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}
	defer c.Close(logger)

	srvCfg := server.Config{}
	if config.Server != nil {
		srvCfg = server.Config{
			Address:        config.Server.Address,
			AllowedOrigins: config.Server.AllowedOrigins,
			RequestTimeout: config.Server.RequestTimeout,
		}
	}

	opts := append([]server.Option{server.WithMetrics(c.metrics.Handler())}, c.health...)
	if err := server.New(srvCfg, c.engine, logger, opts...).Run(ctx); err != nil {
		logger.Error("http server stopped", zap.Error(err))
		return
	}

	logger.Info("bye")
}
