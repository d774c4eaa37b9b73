package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/segmentio/kafka-go"

	"notescan/internal/models"
	"notescan/internal/ocr"
	"notescan/internal/preprocess"
	"notescan/internal/server"
	"notescan/internal/storage"
)

func main() {
	cfg, err := models.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := storage.NewStorage(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init storage: %v", err)
	}
	defer db.Close()

	// Kafka producer
	producer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{cfg.KafkaBroker},
		Topic:   cfg.KafkaTopic,
	})

	recognizer := ocr.NewTesseractRecognizer(cfg.OcrLanguages...)
	orchestrator := ocr.NewOrchestrator(db, recognizer, preprocess.ParseLevel(cfg.PreprocessLevel))

	// Start Kafka consumer in background
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		consumer := kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{cfg.KafkaBroker},
			Topic:   cfg.KafkaTopic,
			GroupID: "notescan-ocr-group",
		})
		defer consumer.Close()

		for {
			msg, err := consumer.ReadMessage(ctx)
			if err != nil {
				if err == context.Canceled {
					return
				}
				log.Printf("error reading message: %v", err)
				continue
			}

			noteID, err := strconv.ParseInt(string(msg.Value), 10, 64)
			if err != nil {
				log.Printf("malformed note id %q: %v", msg.Value, err)
				continue
			}
			if err := orchestrator.Process(ctx, noteID); err != nil {
				log.Printf("error processing note %d: %v", noteID, err)
			}
		}
	}()

	srv := server.NewServer(cfg, db, producer)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	cancel()
	srv.Stop()
	producer.Close()
}
