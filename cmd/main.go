package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "mindtv/docs"
	"mindtv/internal/classify"
	"mindtv/internal/config"
	"mindtv/internal/export"
	"mindtv/internal/handlers"
	"mindtv/internal/logger"
	"mindtv/internal/metrics"
	"mindtv/internal/model"
	"mindtv/internal/publish"
	"mindtv/internal/repository"
	"mindtv/internal/repository/db"
	"mindtv/internal/server"
	"mindtv/internal/service"
	"mindtv/internal/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

// @title        mindtv acquisition API
// @version      1.0
// @description  Collects physiological samples from the sensor board, stores sessions and classifies the content being watched.
// @BasePath     /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := pflag.StringP("config", "c", "configs", "config file or directory holding config.yml")
	pflag.Parse()

	cfg, err := config.Load(viper.New(), *configPath)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	classifier := loadClassifier(cfg.Model.Path, log)

	var publishers []service.EventPublisher
	if cfg.MQTT.Enabled {
		mq, err := publish.Connect(publish.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			QoS:      cfg.MQTT.QoS,
		}, log)
		if err != nil {
			log.Fatalw("failed to connect mqtt", "err", err, "broker", cfg.MQTT.Broker)
		}
		defer mq.Close()
		publishers = append(publishers, mq)
	}

	layout, _ := export.ParseLayout(cfg.Export.Layout) // validated by config.Load
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.Deps{
		Opener:     transport.DeviceOpener{MockInterval: cfg.Device.MockInterval},
		Classifier: classifier,
		Recorder:   rec,
		Publishers: publishers,
		Settings: service.AcquisitionSettings{
			Port:            cfg.Device.Port,
			BaudRate:        cfg.Device.BaudRate,
			ReadTimeout:     cfg.Device.ReadTimeout,
			StartCommand:    []byte(cfg.Device.StartCommand),
			StopCommand:     []byte(cfg.Device.StopCommand),
			DefaultDuration: cfg.Acquisition.DefaultDuration,
			MinDuration:     cfg.Acquisition.MinDuration,
			MaxDuration:     cfg.Acquisition.MaxDuration,
			ExportDir:       cfg.Export.Dir,
			ExportBase:      cfg.Export.BaseName,
			ExportLayout:    layout,
			StatusInterval:  cfg.WS.StatusInterval,
		},
		Auth: service.AuthSettings{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
		Log:  log,
	})
	apiHandler := handlers.NewHandler(services, log,
		handlers.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go services.Broadcaster.Run(ctx)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)
	log.Infow("server_started", "port", cfg.Port, "device", cfg.Device.Port, "model_loaded", classifier != nil)

	waitForShutdown(cancel, srv, services, log)
}

// loadClassifier returns nil when no model is configured.
func loadClassifier(path string, log *logger.Logger) classify.Classifier {
	if path == "" {
		log.Infow("no model configured; classification disabled")
		return nil
	}
	forest, err := model.Load(path)
	if err != nil {
		log.Fatalw("failed to load model", "err", err, "path", path)
	}
	log.Infow("model_loaded", "path", path, "trees", len(forest.Trees), "classes", forest.Classes)
	return forest
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
	// an active run is cancelled and its samples stored before the DB closes
	if err := services.Shutdown(ctx); err != nil {
		log.Errorw("acquisition shutdown incomplete", "err", err)
	}
}
