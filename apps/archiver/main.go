package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/rish4987/chat-app-backend/pkg/db"
	"github.com/rish4987/chat-app-backend/pkg/feed"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	brokers := strings.Split(envOr("KAFKA_BROKERS", "localhost:19092"), ",")
	topic := envOr("FEED_TOPIC", "chat-events")
	groupID := envOr("FEED_GROUP", "archiver-group")

	session, err := db.NewSession(db.Config{
		Hosts:    strings.Split(envOr("SCYLLA_HOSTS", "localhost:9042"), ","),
		Keyspace: envOr("KEYSPACE", "chat"),
	})
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	consumer := feed.NewConsumer(brokers, topic, groupID)
	defer consumer.Close()

	archiver := NewArchiver(consumer, session)

	log.Println("Archiver starting...")
	archiver.Run(context.Background())
}
