// Command kernelbench is a development harness, not a server: it opens
// no network socket and accepts no query language. It exercises the
// buffer pool, extendible hash index, and lock manager together against
// a temp-file-backed disk manager, inserting N rows under row locks and
// reporting buffer pool and lock manager behavior.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zhukovaskychina/xmysql-server/logger"
	"github.com/zhukovaskychina/xmysql-server/server/conf"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/basic"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/buffer_pool"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/diskmanager"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/hashindex"
	"github.com/zhukovaskychina/xmysql-server/server/innodb/manager"
)

func main() {
	configPath := flag.String("config", "", "path to kernel.ini")
	rows := flag.Int("rows", 20000, "rows to insert")
	workers := flag.Int("workers", 8, "concurrent inserting transactions")
	dataDir := flag.String("data-dir", "", "override data_dir from config")
	flag.Parse()

	cfg := conf.NewCfg().Load(&conf.CommandLineArgs{ConfigPath: *configPath})
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	logger.InitLogger(logger.LogConfig{LogLevel: cfg.LogLevel})

	dir, err := os.MkdirTemp("", "kernelbench")
	if err != nil {
		logger.Fatalf("mktemp: %v", err)
	}
	defer os.RemoveAll(dir)

	disk, err := diskmanager.NewFileDiskManager(dir, "kernel")
	if err != nil {
		logger.Fatalf("open disk manager: %v", err)
	}
	defer disk.Close()

	advisor, err := buffer_pool.NewPrefetchAdvisor(int64(cfg.PoolSize)*4, int64(cfg.NumInstances))
	if err != nil {
		logger.Fatalf("prefetch advisor: %v", err)
	}
	defer advisor.Close()

	bpm := buffer_pool.NewBufferPoolManager(cfg.PoolSize, disk, 0, 1)
	index, err := hashindex.NewExtendibleHashTable(bpm, diskmanager.InvalidPageID)
	if err != nil {
		logger.Fatalf("create hash index: %v", err)
	}

	locks := manager.NewLockManager()
	txns := manager.NewTransactionManager()
	store := basic.NewPessimisticRowStore(index, locks)

	fmt.Printf("kernelbench: inserting %d rows across %d workers, pool_size=%d\n", *rows, *workers, cfg.PoolSize)

	start := time.Now()
	var wg sync.WaitGroup
	perWorker := *rows / *workers
	var aborted, committed int64
	var mu sync.Mutex

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			txn := txns.Begin(manager.ReadCommitted)
			for i := 0; i < perWorker; i++ {
				key := uint32(w*perWorker + i)
				err := store.Insert(txn, key, hashindex.RID{PageID: int32(key), SlotID: 0})
				if err != nil {
					mu.Lock()
					aborted++
					mu.Unlock()
					return
				}
			}
			txns.Commit(txn)
			for _, row := range txn.ExclusiveRows() {
				locks.Unlock(txn, row)
			}
			mu.Lock()
			committed++
			mu.Unlock()
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	stats := bpm.StatsSnapshot()
	fmt.Printf("kernelbench: done in %s (committed=%d aborted=%d)\n", elapsed, committed, aborted)
	fmt.Printf("buffer pool: hits=%d misses=%d evictions=%d flushes=%d\n",
		stats.Hits, stats.Misses, stats.Evictions, stats.Flushes)
	fmt.Println(advisor.CacheReport())
}
