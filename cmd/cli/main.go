package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"bplusdb/pkg/common"
	"bplusdb/pkg/config"
	"bplusdb/pkg/core"
	"bplusdb/pkg/logging"
)

const Prompt = "bplus> "

func main() {
	configPath := flag.String("config", "", "path to bplus.yaml")
	dataDir := flag.String("data", "", "override storage.path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Storage.Path = *dataDir
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Printf("Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := core.NewStore(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", zap.Error(err))
		}
	}()

	fmt.Printf("bplus CLI (order=%d, data=%s, keys=%d)\n", cfg.Tree.Order, cfg.Storage.Path, store.Size())
	fmt.Println("Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "put", "set":
			handlePut(store, parts)
		case "get":
			handleGet(store, parts)
		case "del", "rm":
			handleDel(store, parts)
		case "scan":
			handleScan(store, parts)
		case "bulk":
			handleBulk(store, parts)
		case "dump":
			handleDump(store, parts)
		case "load":
			handleLoad(store, parts)
		case "save":
			handleSave(store)
		case "restore":
			handleRestore(store, parts)
		case "snapshots":
			handleSnapshots(store)
		case "stats":
			handleStats(store)
		case "verify":
			if err := store.Verify(); err != nil {
				fmt.Printf("Corrupt: %v\n", err)
			} else {
				fmt.Println("OK")
			}
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func parseKey(s string) (common.KeyType, bool) {
	key, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		fmt.Println("Error: Key must be an integer (e.g., 1001)")
		return 0, false
	}
	return common.KeyType(key), true
}

func handlePut(store *core.Store, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: put <key_int> <value_string>")
		return
	}
	key, ok := parseKey(parts[1])
	if !ok {
		return
	}

	start := time.Now()
	store.Put(key, []byte(strings.Join(parts[2:], " ")))
	fmt.Printf("OK (%v)\n", time.Since(start))
}

func handleGet(store *core.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: get <key_int>")
		return
	}
	key, ok := parseKey(parts[1])
	if !ok {
		return
	}

	start := time.Now()
	val, found := store.Get(key)
	duration := time.Since(start)

	if !found {
		fmt.Printf("(nil) (%v)\n", duration)
	} else {
		fmt.Printf("\"%s\" (%v)\n", string(val), duration)
	}
}

func handleDel(store *core.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: del <key_int>")
		return
	}
	key, ok := parseKey(parts[1])
	if !ok {
		return
	}

	start := time.Now()
	deleted := store.Delete(key)
	duration := time.Since(start)

	if deleted {
		fmt.Printf("Deleted (%v)\n", duration)
	} else {
		fmt.Printf("Not found (%v)\n", duration)
	}
}

func handleScan(store *core.Store, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: scan <start_key> <end_key>")
		return
	}
	startKey, ok1 := parseKey(parts[1])
	endKey, ok2 := parseKey(parts[2])
	if !ok1 || !ok2 {
		return
	}

	fmt.Printf("Scanning range [%d, %d]...\n", startKey, endKey)
	start := time.Now()
	records := store.Scan(startKey, endKey)
	duration := time.Since(start)

	fmt.Printf("Found %d records (%v):\n", len(records), duration)
	for i, rec := range records {
		if i >= 20 {
			fmt.Printf("... and %d more\n", len(records)-20)
			break
		}
		fmt.Printf("  [%d] -> %s\n", rec.Key, string(rec.Value))
	}
}

// bulk <n> replaces the contents with keys 1..n.
func handleBulk(store *core.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: bulk <count>")
		return
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n < 0 {
		fmt.Println("Error: count must be a non-negative integer")
		return
	}

	records := make([]common.Record, n)
	for i := range records {
		records[i] = common.Record{
			Key:   common.KeyType(i + 1),
			Value: []byte(fmt.Sprintf("value-%d", i+1)),
		}
	}
	start := time.Now()
	store.Load(records)
	fmt.Printf("Loaded %d records (%v)\n", store.Size(), time.Since(start))
}

func handleDump(store *core.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: dump <file>")
		return
	}
	start := time.Now()
	n, err := store.Dump(parts[1])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Wrote %d records to %s (%v)\n", n, parts[1], time.Since(start))
}

func handleLoad(store *core.Store, parts []string) {
	if len(parts) < 2 {
		fmt.Println("Usage: load <file>")
		return
	}
	start := time.Now()
	if err := store.LoadFile(parts[1]); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Loaded %d records (%v)\n", store.Size(), time.Since(start))
}

func handleSave(store *core.Store) {
	info, err := store.Checkpoint(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Saved snapshot %s (%d keys, %d bytes)\n", info.ID, info.Keys, info.Size)
}

func handleRestore(store *core.Store, parts []string) {
	ctx := context.Background()
	var err error
	if len(parts) > 1 {
		_, err = store.RestoreID(ctx, parts[1])
	} else {
		_, err = store.Restore(ctx)
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Restored, %d keys\n", store.Size())
}

func handleSnapshots(store *core.Store) {
	infos, err := store.Snapshots(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots")
		return
	}
	for _, info := range infos {
		fmt.Printf("  %s  %s  %-4s order=%d keys=%d bytes=%d\n",
			info.ID, info.CreatedAt.Format(time.RFC3339), info.Format, info.Order, info.Keys, info.Size)
	}
}

func handleStats(store *core.Store) {
	stats := store.Stats()
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-14s %v\n", name, stats[name])
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  put <key> <value>      Insert/Update record
  get <key>              Retrieve record
  del <key>              Delete record
  scan <start> <end>     Range query (inclusive)
  bulk <n>               Replace contents with keys 1..n
  dump <file>            Write all records to a sorted table file
  load <file>            Replace contents from a sorted table file
  save                   Write a snapshot
  restore [id]           Load the latest (or given) snapshot
  snapshots              List snapshots
  stats                  Tree shape and workload counters
  verify                 Check tree invariants
  exit                   Exit CLI (unsaved changes are saved)
	`)
}
