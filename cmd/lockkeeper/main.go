// cmd/lockkeeper/main.go
package main

import (
	"fmt"
	"os"

	_ "github.com/avivl/lockkeeper/internal/store/dynamodb"
	_ "github.com/avivl/lockkeeper/internal/store/memory"
	_ "github.com/avivl/lockkeeper/internal/store/redis"
	_ "github.com/avivl/lockkeeper/internal/store/scylladb"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
