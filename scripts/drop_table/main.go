// Command drop_table removes the chat tables, for resetting a local cluster.
package main

import (
	"log"

	"github.com/rish4987/chat-app-backend/pkg/db"
)

func main() {
	session, err := db.NewSession(db.Config{
		Hosts:    []string{"localhost:9042"},
		Keyspace: "chat",
	})
	if err != nil {
		log.Fatalf("Failed to connect to ScyllaDB: %v", err)
	}
	defer session.Close()

	for _, table := range []string{"messages", "chats", "direct_chats", "user_chats", "unread_counts"} {
		log.Printf("Dropping table %s...", table)
		if err := session.Query("DROP TABLE IF EXISTS " + table).Exec(); err != nil {
			log.Fatalf("Failed to drop table %s: %v", table, err)
		}
	}
	log.Println("Tables dropped successfully.")
}
