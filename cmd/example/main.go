package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"bplusdb/pkg/bptree"
	"bplusdb/pkg/common"
	"bplusdb/pkg/config"
	"bplusdb/pkg/core"
	"bplusdb/pkg/logging"
)

func main() {
	splitAndMerge()
	bulkLoad()
	checkpoint()
}

func splitAndMerge() {
	fmt.Println("== order 4: insert 1..6, delete 3, 1, 6 ==")
	t, err := bptree.New[int, string](4)
	if err != nil {
		log.Fatalf("New failed: %v", err)
	}
	for k := 1; k <= 6; k++ {
		t.Insert(k, fmt.Sprintf("v%d", k))
	}
	fmt.Printf("after inserts: %s\n", t.Stats())

	for _, k := range []int{3, 1, 6} {
		t.Delete(k)
		fmt.Printf("delete %d: %s\n", k, t.Stats())
	}
	for _, e := range t.RangeQuery(0, 10) {
		fmt.Printf("  %d -> %s\n", e.Key, e.Value)
	}
	if err := t.Verify(); err != nil {
		log.Fatalf("Verify failed: %v", err)
	}
}

func bulkLoad() {
	fmt.Println("== bulk load, order 4, keys 10..30 step 2 ==")
	var items []bptree.Entry[int, string]
	for k := 30; k >= 10; k -= 2 {
		items = append(items, bptree.Entry[int, string]{Key: k, Value: fmt.Sprintf("v%d", k)})
	}
	t, err := bptree.Build(4, items)
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	fmt.Printf("built: %s\n", t.Stats())

	it := t.Range(15, 25)
	for it.Next() {
		fmt.Printf("  %d -> %s\n", it.Key(), it.Value())
	}
	it.Close()
}

func checkpoint() {
	fmt.Println("== checkpoint and restore ==")
	dir, err := os.MkdirTemp("", "bplus-example")
	if err != nil {
		log.Fatalf("MkdirTemp failed: %v", err)
	}
	defer os.RemoveAll(dir)

	cfg := config.Default()
	cfg.Storage.Path = dir
	cfg.Log.Development = true
	logger := logging.Must(cfg.Log)
	defer logger.Sync()

	store, err := core.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	for i := 1; i <= 1000; i++ {
		store.Put(common.KeyType(i), []byte(fmt.Sprintf("value-%d", i)))
	}
	start := time.Now()
	info, err := store.Checkpoint(context.Background())
	if err != nil {
		logger.Fatal("checkpoint", zap.Error(err))
	}
	fmt.Printf("snapshot %s: %d keys, %d bytes (in %v)\n", info.ID, info.Keys, info.Size, time.Since(start))
	if err := store.Close(); err != nil {
		logger.Fatal("close", zap.Error(err))
	}

	store, err = core.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("reopen store", zap.Error(err))
	}
	defer store.Close()
	val, ok := store.Get(500)
	fmt.Printf("after reopen: keys=%d get(500)=%q found=%v\n", store.Size(), val, ok)
}
