/*
 * Cherry - An OpenFlow Controller
 *
 * Copyright (C) 2015 Samjung Data Service, Inc. All rights reserved.
 * Kitae Kim <superkkt@sds.co.kr>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation; either version 2 of the License, or
 * any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License along
 * with this program; if not, write to the Free Software Foundation, Inc.,
 * 51 Franklin Street, Fifth Floor, Boston, MA 02110-1301 USA.
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/superkkt/ofdriver/database"
	"github.com/superkkt/ofdriver/log"
	"github.com/superkkt/ofdriver/network"
	"github.com/superkkt/ofdriver/openflow"
	"github.com/superkkt/ofdriver/openflow/of10"
	"github.com/superkkt/ofdriver/openflow/of13"

	"github.com/fsnotify/fsnotify"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

const (
	programName    = "ofdriver"
	programVersion = "0.1.0"
)

var (
	logger            = logging.MustGetLogger("main")
	loggerLeveled     logging.LeveledBackend
	registry          *openflow.Registry
	legacyEnabled     atomic.Bool
	showVersion       = flag.Bool("version", false, "Show program version and exit")
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.yaml", programName), "absolute path of the configuration file")
)

type store interface {
	network.Store
	io.Closer
}

type memoryStore struct {
	*database.Memory
}

func (memoryStore) Close() error { return nil }

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Printf("Version: %v\n", programVersion)
		os.Exit(0)
	}

	initConfig()
	if err := initLog(); err != nil {
		logger.Fatalf("failed to init log: %v", err)
	}

	db, err := newStore(viper.GetString("database.backend"))
	if err != nil {
		logger.Fatalf("failed to init the %v database: %v", viper.GetString("database.backend"), err)
	}
	defer db.Close()

	codec := openflow.NewCodec(newRegistry())
	controller := network.NewController(codec, db)
	if err := network.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
		logger.Fatalf("failed to register the metrics: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	initSignalHandler(controller, cancel)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return listen(ctx, viper.GetInt("default.port"), controller) })
	if port := viper.GetInt("metrics.port"); port > 0 {
		g.Go(func() error { return serveMetrics(ctx, port) })
	}
	if err := g.Wait(); err != nil {
		logger.Errorf("terminated: %v", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetConfigFile(*defaultConfigFile)
	viper.SetDefault("default.port", 6653)
	viper.SetDefault("default.log_level", "info")
	viper.SetDefault("database.backend", "mysql")
	viper.SetDefault("openflow.legacy_flow_mod", false)
	// Read the config file.
	if err := viper.ReadInConfig(); err != nil {
		logger.Fatalf("failed to read the config file: %v", err)
	}
	// Watching and re-reading config file whenever it changes.
	viper.OnConfigChange(func(e fsnotify.Event) {
		// Ignore the WRITE operation to avoid reading empty config.
		if e.Op != fsnotify.Write {
			return
		}

		if loggerLeveled != nil {
			// Set log level for all modules
			loggerLeveled.SetLevel(getLogLevel(viper.GetString("default.log_level")), "")
		}
		setLegacyFlowMod(viper.GetBool("openflow.legacy_flow_mod"))
	})
	viper.WatchConfig()
	if err := validateConfig(); err != nil {
		logger.Fatalf("failed to validate the configuration: %v", err)
	}
}

func validateConfig() error {
	if port := viper.GetInt("default.port"); port <= 0 || port > 0xFFFF {
		return errors.New("invalid default.port")
	}
	if len(viper.GetString("default.log_level")) == 0 {
		return errors.New("invalid default.log_level")
	}
	if port := viper.GetInt("metrics.port"); port < 0 || port > 0xFFFF {
		return errors.New("invalid metrics.port")
	}
	switch backend := viper.GetString("database.backend"); backend {
	case "mysql", "memory":
	default:
		return fmt.Errorf("invalid database.backend: %v", backend)
	}

	return nil
}

func initLog() error {
	syslog, err := log.NewSyslog(programName)
	if err != nil {
		return err
	}

	var file io.Writer
	if path := viper.GetString("default.log_file"); len(path) > 0 {
		file = log.NewFile(log.FileConfig{
			Path:       path,
			MaxSizeMB:  viper.GetInt("default.log_max_size"),
			MaxBackups: viper.GetInt("default.log_max_backups"),
			MaxAgeDays: viper.GetInt("default.log_max_age"),
			Compress:   viper.GetBool("default.log_compress"),
		})
	}
	loggerLeveled = log.Init(getLogLevel(viper.GetString("default.log_level")), syslog, file)

	return nil
}

func getLogLevel(level string) logging.Level {
	ret, err := log.ParseLevel(level)
	if err != nil {
		logger.Infof("invalid log level=%v, defaulting to %v..", level, ret)
	}

	return ret
}

func newStore(backend string) (store, error) {
	switch backend {
	case "mysql":
		db, err := database.NewMySQL()
		if err != nil {
			return nil, err
		}
		return db, nil
	case "memory":
		return memoryStore{database.NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unknown database backend: %v", backend)
	}
}

// newRegistry registers the OpenFlow 1.0 codecs before the 1.3 ones, because
// of13.Inject seals the registry.
func newRegistry() *openflow.Registry {
	reg := openflow.NewRegistry()
	of10.Inject(reg)
	of13.Inject(reg)

	if viper.GetBool("openflow.legacy_flow_mod") {
		of13.InjectLegacyCodecs(reg)
		legacyEnabled.Store(true)
	}
	registry = reg

	return reg
}

func setLegacyFlowMod(enable bool) {
	if registry == nil || legacyEnabled.Load() == enable {
		return
	}

	if enable {
		of13.InjectLegacyCodecs(registry)
		logger.Info("legacy FLOW_MOD serializer is enabled")
	} else {
		of13.RevertLegacyCodecs(registry)
		logger.Info("legacy FLOW_MOD serializer is disabled")
	}
	legacyEnabled.Store(enable)
}

func initSignalHandler(controller *network.Controller, cancel context.CancelFunc) {
	go func() {
		c := make(chan os.Signal, 5)
		signal.Notify(c, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

		// Infinte loop.
		for {
			s := <-c
			if s == syscall.SIGTERM || s == syscall.SIGINT {
				// Graceful shutdown
				logger.Warning("Shutting down...")
				cancel()
				// Timeout for cancelation
				time.Sleep(5 * time.Second)
				os.Exit(0)
			} else if s == syscall.SIGHUP {
				fmt.Println("* Controller status:")
				fmt.Println(controller.String())
			}
		}
	}()
}

func serveMetrics(ctx context.Context, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Infof("serving the metrics on %v port", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "metrics server")
	}

	return nil
}

func listen(ctx context.Context, port int, controller *network.Controller) error {
	type KeepAliver interface {
		SetKeepAlive(keepalive bool) error
		SetKeepAlivePeriod(d time.Duration) error
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%v", port))
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %v port", port)
	}
	defer listener.Close()
	logger.Infof("listening on %v port", port)

	// Connection dispatcher.
	f := func(c chan<- net.Conn) {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Errorf("failed to accept a new connection: %v", err)
				continue
			}
			logger.Infof("new device is connected from %v", conn.RemoteAddr())

			// Pass the new connection into the backlog queue.
			select {
			case c <- conn:
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}
	backlog := make(chan net.Conn, 32)
	go f(backlog)

	// Infinite loop
	for {
		select {
		case <-ctx.Done():
			logger.Debug("terminating the main listener loop...")
			return nil
		case conn := <-backlog:
			logger.Debug("fetching a new connection from the backlog..")
			if v, ok := conn.(KeepAliver); ok {
				logger.Debug("trying to enable socket keepalive..")
				if err := v.SetKeepAlive(true); err == nil {
					logger.Debug("setting socket keepalive period...")
					// Makes a broken connection will be disconnected within 45 seconds.
					v.SetKeepAlivePeriod(time.Duration(5) * time.Second)
				} else {
					logger.Errorf("failed to enable socket keepalive: %v", err)
				}
			}
			controller.AddConnection(ctx, conn)
		}
	}
}
