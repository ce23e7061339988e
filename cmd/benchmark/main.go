package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/google/btree"

	"bplusdb/pkg/bptree"
	"bplusdb/pkg/codec"
)

type entry = bptree.Entry[int64, []byte]

func main() {
	n := flag.Int("n", 200000, "Number of keys per run")
	order := flag.Int("order", 32, "B+ tree order")
	seed := flag.Uint64("seed", 1, "Random seed")
	flag.Parse()

	fmt.Printf("B+ Tree Benchmark (N=%d, order=%d)\n", *n, *order)
	fmt.Println("---------------------------------------------------")

	rng := rand.New(rand.NewPCG(*seed, *seed))
	keys := make([]int64, *n)
	for i := range keys {
		keys[i] = int64(i)
	}
	rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	val := []byte("bench_data")

	fmt.Println(">> Random inserts...")
	t, err := bptree.New[int64, []byte](*order)
	if err != nil {
		log.Fatalf("New failed: %v", err)
	}
	d := timed(func() {
		for _, k := range keys {
			t.Insert(k, val)
		}
	})
	report("insert", d, *n)
	fmt.Printf("   shape: %s\n", t.Stats())

	fmt.Println(">> Bulk load (unsorted input)...")
	items := make([]entry, len(keys))
	for i, k := range keys {
		items[i] = entry{Key: k, Value: val}
	}
	var bulk *bptree.Tree[int64, []byte]
	d = timed(func() {
		bulk, err = bptree.Build(*order, items)
	})
	if err != nil {
		log.Fatalf("Build failed: %v", err)
	}
	report("bulk", d, *n)
	fmt.Printf("   shape: %s\n", bulk.Stats())

	fmt.Println(">> Point lookups...")
	d = timed(func() {
		for _, k := range keys {
			if _, ok := t.TrySearch(k); !ok {
				log.Fatalf("key %d missing", k)
			}
		}
	})
	report("search", d, *n)

	fmt.Println(">> Point lookups, google/btree for comparison...")
	ref := btree.NewG[int64](*order/2+1, func(a, b int64) bool { return a < b })
	for _, k := range keys {
		ref.ReplaceOrInsert(k)
	}
	d = timed(func() {
		for _, k := range keys {
			if _, ok := ref.Get(k); !ok {
				log.Fatalf("key %d missing", k)
			}
		}
	})
	report("btree.Get", d, *n)

	fmt.Println(">> Range scans of 100 keys...")
	scans := *n / 100
	d = timed(func() {
		for i := 0; i < scans; i++ {
			start := rng.Int64N(int64(*n))
			it := t.Range(start, start+99)
			for it.Next() {
			}
			it.Close()
		}
	})
	report("scan", d, scans)

	fmt.Println(">> Snapshot encoding...")
	for _, f := range []codec.Format{codec.FormatCBOR, codec.FormatJSON} {
		var data []byte
		d = timed(func() {
			data, err = codec.EncodeTree(f, t)
		})
		if err != nil {
			log.Fatalf("encode %s failed: %v", f, err)
		}
		var back *bptree.Tree[int64, []byte]
		dd := timed(func() {
			back, err = codec.DecodeTree[int64, []byte](data)
		})
		if err != nil {
			log.Fatalf("decode %s failed: %v", f, err)
		}
		fmt.Printf("   %-4s %8d bytes | encode %v | decode %v | keys %d\n", f, len(data), d, dd, back.Len())
	}

	fmt.Println(">> Random deletes...")
	d = timed(func() {
		for _, k := range keys {
			t.Delete(k)
		}
	})
	report("delete", d, *n)
	if err := t.Verify(); err != nil {
		log.Fatalf("Verify failed: %v", err)
	}
	fmt.Println("---------------------------------------------------")
	fmt.Printf("Done, %d keys left\n", t.Len())
}

func timed(fn func()) time.Duration {
	start := time.Now()
	fn()
	return time.Since(start)
}

func report(name string, d time.Duration, ops int) {
	fmt.Printf("   %-10s Time: %v | QPS: %.0f\n", name, d, float64(ops)/d.Seconds())
}
