package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/shivammaggu/prefstore/internal/api"
	"github.com/shivammaggu/prefstore/internal/discovery"
	"github.com/shivammaggu/prefstore/internal/server"
	"github.com/shivammaggu/prefstore/internal/vault"
	"github.com/shivammaggu/prefstore/pkg/engine"
	"github.com/shivammaggu/prefstore/pkg/prefs"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("PREFSTORE_LOG_LEVEL")),
	})))

	slog.Info("starting prefstore daemon")

	dataDir := envOr("PREFSTORE_DATA_DIR", "./data")
	port := envOr("PREFSTORE_PORT", "7001")
	httpPort := envOr("PREFSTORE_HTTP_PORT", "7002")
	useTLS := os.Getenv("PREFSTORE_DISABLE_TLS") != "true"
	useMDNS := os.Getenv("PREFSTORE_MDNS") != "false"

	persister, err := engine.NewPersistence(dataDir)
	if err != nil {
		slog.Error("initialize persistence", "error", err)
		os.Exit(1)
	}

	initialData, err := persister.LoadAll()
	if err != nil {
		slog.Warn("could not load existing data", "error", err)
	}

	store := engine.NewMemStore(initialData, persister,
		engine.WithLogger(prefs.SlogLogger(slog.Default())))
	slog.Info("engine started", "namespaces", len(initialData))

	router := server.NewRouter(store)

	if useTLS {
		cert, err := vault.GenerateSelfSignedCert()
		if err != nil {
			slog.Error("generate TLS certificate", "error", err)
			os.Exit(1)
		}
		router.SetCertificate(cert)
		slog.Info("TLS encryption enabled")
	} else {
		slog.Info("TLS encryption disabled", "reason", "PREFSTORE_DISABLE_TLS=true")
	}

	var announcer *discovery.Announcer
	if useMDNS {
		tcpPort, err := strconv.Atoi(port)
		if err != nil {
			slog.Warn("invalid PREFSTORE_PORT, skipping mDNS announce", "port", port)
		} else {
			instance, _ := os.Hostname()
			if instance == "" {
				instance = "prefstored"
			}
			announcer, err = discovery.Announce(instance, tcpPort)
			if err != nil {
				slog.Warn("mDNS announce failed", "error", err)
			} else {
				slog.Info("announced on mDNS", "instance", instance, "port", tcpPort)
			}
		}
	}

	h := &api.Handler{Store: store}
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h.Register(r.Group("/api"))
	r.GET("/healthz", h.Healthz)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	go func() {
		slog.Info("HTTP API listening", "port", httpPort)
		if err := r.Run(":" + httpPort); err != nil {
			slog.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("shutdown signal received")
		announcer.Stop()
		router.Stop()
	}()

	slog.Info("TCP engine listening", "port", port)
	if err := router.Listen(port); err != nil {
		slog.Error("TCP server failed", "error", err)
		os.Exit(1)
	}

	slog.Info("finalizing disk writes")
	store.Wait()
	slog.Info("persistence complete, exiting")
}
