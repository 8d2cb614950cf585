package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"polnischlernen/internal/api"
	"polnischlernen/internal/cache"
	"polnischlernen/internal/config"
	"polnischlernen/internal/events"
	"polnischlernen/internal/export"
	"polnischlernen/internal/llm"
	"polnischlernen/internal/lms"
	"polnischlernen/internal/logging"
	"polnischlernen/internal/pdf"
	"polnischlernen/internal/player"
	"polnischlernen/internal/storage"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("")

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🇵🇱 POLNISCH LERNEN - Start")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Kommandozeilen-Flags
	configPath := flag.String("config", "config.json", "Pfad zur Konfigurationsdatei")
	port := flag.String("port", "", "Server-Port (überschreibt Konfiguration und PORT)")
	flag.Parse()

	// Konfiguration laden
	log.Println("📋 Lade Konfiguration...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("⚠️  Konnte Konfiguration nicht laden, verwende Standardwerte: %v", err)
	}
	if err := cfg.LoadEnv(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *port != "" {
		cfg.ServerPort = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("   ✓ Konfiguration geladen")

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage initialisieren
	log.Println("💾 Initialisiere Datenbank...")
	store, err := storage.Open(cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Fehler beim Initialisieren der Datenbank: %v", err)
	}
	defer store.Close()
	if cfg.DatabaseDriver == "postgres" {
		log.Printf("   ✓ Datenbank: PostgreSQL")
	} else {
		log.Printf("   ✓ Datenbank: %s", cfg.DatabasePath)
	}

	// Cache initialisieren
	log.Println("🗄️  Initialisiere Cache...")
	var kv cache.CacheService
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Redis nicht erreichbar: %v", err)
		}
		defer client.Close()
		kv = cache.NewRedisCache(client, logger)
		log.Printf("   ✓ Redis verbunden")
	} else {
		kv = cache.NewMemoryCache()
		log.Printf("   ✓ In-Memory-Cache (REDIS_URL nicht gesetzt)")
	}

	// Ereignisse initialisieren
	log.Println("📣 Initialisiere Ereignisse...")
	publisher, subscriber, err := events.NewPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		Topic:        cfg.EventsTopic,
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("❌ Fehler beim Initialisieren der Ereignisse: %v", err)
	}
	defer publisher.Close()
	if subscriber != nil {
		if err := events.Consume(ctx, subscriber, cfg.EventsTopic, logger, events.LogHandler(logger)); err != nil {
			log.Fatalf("❌ %v", err)
		}
		log.Printf("   ✓ Prozessinterne Ereignisse, Topic: %s", cfg.EventsTopic)
	} else {
		log.Printf("   ✓ Kafka: %v, Topic: %s", cfg.KafkaBrokers, cfg.EventsTopic)
	}

	// LLM-Provider initialisieren
	log.Println("🤖 Initialisiere LLM-Provider...")
	var provider llm.Provider
	if cfg.OpenAIAPIKey == "" && cfg.OpenAIBaseURL == "" {
		provider = llm.NewFakeProvider()
		log.Println("   ⚠️  OPENAI_API_KEY nicht gesetzt, Offline-Modus mit Platzhalterantworten")
	} else {
		provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
			APIKey:        cfg.OpenAIAPIKey,
			BaseURL:       cfg.OpenAIBaseURL,
			ChatModel:     cfg.ChatModel,
			ImageModel:    cfg.ImageModel,
			SpeechModel:   cfg.SpeechModel,
			SpeechVoice:   cfg.SpeechVoice,
			MaxConcurrent: cfg.MaxConcurrent,
		}, logger)
	}

	// Prüfe LLM-Verbindung
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if provider.IsAvailable(checkCtx) {
		log.Printf("   ✓ %s erreichbar", provider.GetName())
	} else {
		log.Printf("   ⚠️  %s NICHT erreichbar", provider.GetName())
	}
	cancel()
	log.Printf("   ✓ Chat-Modell: %s", provider.GetCurrentModel())

	images := llm.NewImagePool(provider, llm.ImagePoolConfig{
		MaxWorkers:     cfg.MaxConcurrent,
		TimeoutPerTask: time.Minute,
	}, logger)
	tutor := llm.NewTutor(provider, images, logger)

	service := lms.NewService(store, cache.NewCompletionStore(kv), publisher, logger)
	sessions := player.New(service, logger, player.Config{
		IdleTimeout: time.Duration(cfg.SessionIdleMinutes) * time.Minute,
	})
	defer sessions.Close()

	// API-Handler erstellen
	handler := api.NewHandler(api.Deps{
		Store:    store,
		Tutor:    tutor,
		Player:   sessions,
		LMS:      service,
		Theory:   cache.NewTheoryCache(kv, time.Duration(cfg.TheoryCacheMinutes)*time.Minute),
		Importer: pdf.NewImporter(store, logger),
		Exporter: export.NewExporter(store),
		Config:   cfg,
		Logger:   logger,
	})

	// Router erstellen
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown
	go func() {
		<-ctx.Done()
		log.Println("")
		log.Println("⏹️  Server wird heruntergefahren...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.LogError(err, "Shutdown fehlgeschlagen")
		}
	}()

	log.Println("")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✅ Server läuft auf: http://localhost:%s", cfg.ServerPort)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("👤 Demo-Nutzer: %s", cfg.DemoUserID)
	log.Println("💡 Drücke Strg+C zum Beenden")
	log.Println("")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server-Fehler: %v", err)
	}
}
