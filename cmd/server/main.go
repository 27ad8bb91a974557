package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finagg/internal/auth"
	"finagg/internal/config"
	"finagg/internal/cryptoutil"
	"finagg/internal/db"
	"finagg/internal/handlers"
	"finagg/internal/jobs"
	"finagg/internal/notify"
	"finagg/internal/otp"
	"finagg/internal/services"
	"finagg/internal/setu"
	"finagg/internal/store"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	pancards := store.NewPancardStore(database)
	consents := store.NewConsentStore(database)
	sessions := store.NewSessionStore(database)
	accounts := store.NewAccountStore(database)
	transactions := store.NewTransactionStore(database)
	fips := store.NewFIPStore(database)
	txRunner := db.NewTxRunner(database)

	setuClient := setu.NewClient(cfg.Setu)
	emitter := notify.NewEmitter(cfg.Pusher)
	verifier := auth.NewKeycloakVerifier(cfg.Keycloak)
	otpSender := otp.NewSender(cfg.Twilio)
	box := cryptoutil.NewBox(cfg.EncryptionKey)

	ingest := services.NewIngestService(txRunner, sessions, consents, fips, accounts, transactions, users, emitter)
	queue := jobs.NewIngestQueue(ingest, 2, 64)
	sessionService := services.NewSessionService(txRunner, sessions, consents, setuClient, queue, cfg.SessionStorageDir)
	consentService := services.NewConsentService(txRunner, consents, sessionService, setuClient)
	userService := services.NewUserService(txRunner, users, pancards, setuClient, box)

	fipSync := jobs.NewFIPSync(txRunner, setuClient, fips, cfg.FIPSyncSchedule)
	if err := fipSync.Start(); err != nil {
		log.Fatalf("failed to start fip sync: %v", err)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	queue.Start(workerCtx)

	handler := handlers.New(cfg, verifier, userService, consentService, sessionService, consents, accounts, transactions, otpSender, emitter)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(userService),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("finagg API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	fipSync.Stop()
	// Drain the queue before cancelling the worker context, otherwise the
	// workers could exit with jobs still buffered.
	queue.Stop()
	stopWorkers()
}
