package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rish4987/chat-app-backend/pkg/auth"
	"github.com/rish4987/chat-app-backend/pkg/broker"
	"github.com/rish4987/chat-app-backend/pkg/db"
	"github.com/rish4987/chat-app-backend/pkg/delivery"
	"github.com/rish4987/chat-app-backend/pkg/feed"
	"github.com/rish4987/chat-app-backend/pkg/presence"
	"github.com/rish4987/chat-app-backend/pkg/registry"
	"github.com/rish4987/chat-app-backend/pkg/snowflake"
	"github.com/rish4987/chat-app-backend/pkg/store"
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

	addr := envOr("ADDR", ":8080")
	jwtSecret := envOr("JWT_SECRET", "dev_secret_change_me")

	nodeID, err := strconv.ParseInt(envOr("SNOWFLAKE_NODE", "1"), 10, 64)
	if err != nil {
		log.Fatalf("invalid SNOWFLAKE_NODE: %v", err)
	}
	ids, err := snowflake.NewNode(nodeID)
	if err != nil {
		log.Fatalf("failed to initialize id generator: %v", err)
	}

	// Stores: ScyllaDB is the durable source of truth; the in-memory
	// backend exists for local development without a cluster.
	var chats store.ChatStore
	var messages store.MessageStore
	switch backend := envOr("STORE_BACKEND", "scylla"); backend {
	case "scylla":
		session, err := db.NewSession(db.Config{
			Hosts:    strings.Split(envOr("SCYLLA_HOSTS", "localhost:9042"), ","),
			Keyspace: envOr("KEYSPACE", "chat"),
		})
		if err != nil {
			log.Fatalf("failed to connect to ScyllaDB: %v", err)
		}
		defer session.Close()
		log.Println("Connected to ScyllaDB cluster")
		scylla := store.NewScylla(session)
		chats, messages = scylla, scylla
	case "memory":
		mem := store.NewMemory()
		chats, messages = mem, mem
		log.Println("Using in-memory store (development only)")
	default:
		log.Fatalf("unknown STORE_BACKEND %q", backend)
	}

	// Registry: in-process by default; Redis-backed when several server
	// processes need a shared presence view.
	var reg registry.Registry
	switch backend := envOr("REGISTRY_BACKEND", "memory"); backend {
	case "memory":
		reg = registry.NewMemory()
	case "redis":
		redisReg := registry.NewRedis(envOr("REDIS_ADDR", "localhost:6379"))
		defer redisReg.Close()
		reg = redisReg
		log.Println("Using Redis-backed connection registry")
	default:
		log.Fatalf("unknown REGISTRY_BACKEND %q", backend)
	}

	rooms := broker.New()
	presencePub := presence.NewPublisher(reg, rooms)

	producer := feed.NewProducer(
		strings.Split(envOr("KAFKA_BROKERS", "localhost:19092"), ","),
		envOr("FEED_TOPIC", "chat-events"),
	)
	defer producer.Close()

	pipeline := delivery.NewPipeline(chats, messages, rooms, reg, ids).WithFeed(producer)

	authMgr := auth.NewManager(jwtSecret, 24*time.Hour)
	gw := newGateway(authMgr, reg, rooms, presencePub)

	http.HandleFunc("/ws", gw.serveWS)
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	http.Handle("/login", CORSMiddleware(LoginHandler(authMgr)))
	http.Handle("/messages", CORSMiddleware(authMgr.Middleware(MessagesHandler(pipeline, chats, messages))))
	http.Handle("/messages/seen", CORSMiddleware(authMgr.Middleware(MarkSeenHandler(pipeline))))
	http.Handle("/chats", CORSMiddleware(authMgr.Middleware(ChatsHandler(chats, messages))))
	http.Handle("/chats/read", CORSMiddleware(authMgr.Middleware(ReadHandler(chats))))
	http.Handle("/presence", CORSMiddleware(authMgr.Middleware(PresenceHandler(reg))))

	log.Printf("Chat server starting on %s...", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal(err)
	}
}
