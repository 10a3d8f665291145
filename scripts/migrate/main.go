// Command migrate bootstraps the chat keyspace and tables.
// In production, schema changes should go through a migration tool;
// this covers local and test clusters.
package main

import (
	"log"
	"os"
	"strings"

	"github.com/rish4987/chat-app-backend/pkg/db"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS chats (
		id text PRIMARY KEY,
		users set<text>,
		is_group boolean,
		latest_message_id bigint,
		created_at timestamp,
		updated_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS direct_chats (
		user_a text,
		user_b text,
		chat_id text,
		PRIMARY KEY (user_a, user_b)
	)`,
	`CREATE TABLE IF NOT EXISTS user_chats (
		user_id text,
		chat_id text,
		last_message_at timestamp,
		PRIMARY KEY (user_id, chat_id)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		chat_id text,
		id bigint,
		sender_id text,
		content text,
		status text,
		created_at timestamp,
		PRIMARY KEY (chat_id, id)
	) WITH CLUSTERING ORDER BY (id DESC)`,
	`CREATE TABLE IF NOT EXISTS unread_counts (
		user_id text,
		chat_id text,
		unread counter,
		PRIMARY KEY (user_id, chat_id)
	)`,
}

func main() {
	hostsStr := os.Getenv("SCYLLA_HOSTS")
	if hostsStr == "" {
		hostsStr = "localhost:9042"
	}
	hosts := strings.Split(hostsStr, ",")

	keyspace := os.Getenv("KEYSPACE")
	if keyspace == "" {
		keyspace = "chat"
	}

	// The keyspace must be created from a session without one.
	sysSession, err := db.NewSession(db.Config{Hosts: hosts, Keyspace: "system"})
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB system keyspace: %v", err)
	}
	err = sysSession.Query(`CREATE KEYSPACE IF NOT EXISTS ` + keyspace +
		` WITH REPLICATION = { 'class' : 'SimpleStrategy', 'replication_factor' : 1 }`).Exec()
	sysSession.Close()
	if err != nil {
		log.Fatalf("Failed to create keyspace: %v", err)
	}

	session, err := db.NewSession(db.Config{Hosts: hosts, Keyspace: keyspace})
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB %s keyspace: %v", keyspace, err)
	}
	defer session.Close()

	for _, stmt := range tables {
		if err := session.Query(stmt).Exec(); err != nil {
			log.Fatalf("Failed to create table: %v", err)
		}
	}
	log.Println("Schema created successfully")
}
