// client/go/lockkeeper-client/example/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	lockkeeperclient "github.com/avivl/lockkeeper/client/go/lockkeeper-client"
)

func main() {
	address := flag.String("server", "localhost:5050", "lockkeeper server address")
	name := flag.String("lock", "default", "lock name")
	resource := flag.String("resource", "example", "resource suffix to lock")
	flag.Parse()

	client, err := lockkeeperclient.New(*address)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := client.AcquireWait(ctx, *name, *resource, 10*time.Second)
	if err != nil {
		log.Fatalf("Failed to acquire lock: %v", err)
	}
	if !res.Acquired {
		log.Fatalf("Lock is busy: %s", res.Message)
	}
	defer func() {
		if err := client.Release(context.Background(), *name, *resource); err != nil {
			log.Printf("Failed to release lock: %v", err)
		}
	}()

	fmt.Printf("Holding %s:%s, doing work...\n", *name, *resource)
	time.Sleep(2 * time.Second)
	fmt.Println("Done")
}
