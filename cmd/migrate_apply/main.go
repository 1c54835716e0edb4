package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"coin_ledger/internal/db"
	"coin_ledger/internal/logger"
	"coin_ledger/internal/migrations"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations (default lists them)")
	flag.Parse()
	logger.Init("info", false)

	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		logger.Fatal("list migrations", "error", err)
	}
	sort.Strings(names)

	if !*apply {
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		logger.Fatal("connect", "error", err)
	}
	defer pool.Close()

	for _, name := range names {
		b, err := migrations.FS.ReadFile(name)
		if err != nil {
			logger.Fatal("read migration", "file", name, "error", err)
		}
		if _, err := pool.Exec(ctx, string(b)); err != nil {
			logger.Fatal("apply migration", "file", name, "error", err)
		}
		logger.Info("applied", "file", name)
	}
}
