// Command bqcheck verifies BigQuery credentials: it builds a client from the
// service account key named by BIGQUERY_CREDENTIALS_PATH (or -key) and
// optionally runs SELECT 1 against it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"crmetl/internal/warehouse"
)

func main() {
	keyPath := flag.String("key", "", "service account key path (overrides env BIGQUERY_CREDENTIALS_PATH)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	ping := flag.Bool("ping", false, "run SELECT 1 against BigQuery")
	timeout := flag.Duration("timeout", 30*time.Second, "ping timeout")
	flag.Parse()

	path := *keyPath
	if path == "" {
		path = warehouse.KeyPathFromEnv(*envFile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := warehouse.NewClient(ctx, path)
	if err != nil {
		fatalf("bqcheck: %v", err)
	}
	defer c.Close()
	log.Printf("bqcheck: client ready project=%s", c.Project)

	if *ping {
		if err := c.Ping(ctx); err != nil {
			fatalf("bqcheck: %v", err)
		}
		log.Printf("bqcheck: ping ok")
	}
	fmt.Println(c.Project)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
