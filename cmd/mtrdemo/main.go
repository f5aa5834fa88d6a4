// Command mtrdemo wires the redo-log and mini-transaction subsystem
// together end to end: opens a log file, starts the writer/closer threads
// and the checkpointer, runs a handful of mini-transactions against a
// small set of pages, and reports the resulting lsn progression.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/zhukovaskychina/xmysql-redo/internal/bufpool"
	"github.com/zhukovaskychina/xmysql-redo/internal/checkpoint"
	"github.com/zhukovaskychina/xmysql-redo/internal/config"
	"github.com/zhukovaskychina/xmysql-redo/internal/logfile"
	"github.com/zhukovaskychina/xmysql-redo/internal/logging"
	"github.com/zhukovaskychina/xmysql-redo/internal/logsys"
	"github.com/zhukovaskychina/xmysql-redo/internal/mtr"
)

func main() {
	cfgPath := flag.String("config", "", "path to an ini config file ([redo] section)")
	logPath := flag.String("logfile", "mtrdemo.log", "path to the redo log file")
	nMtrs := flag.Int("n", 1000, "number of mini-transactions to run")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel})

	capacity := uint64(cfg.BufferSize) * 4
	file, err := logfile.Open(*logPath, capacity)
	if err != nil {
		log.Named("mtrdemo").WithField("err", err).Fatal("failed to open redo log file")
	}
	defer file.Close()

	redo := logsys.New(logsys.Options{Cfg: cfg, Logger: log, File: file})
	redo.Start()
	defer redo.Stop()

	flush := bufpool.NewFlushListSet(8)
	ckpt := checkpoint.NewCheckpointer(redo, flush, uint64(cfg.RecentClosedSlots), 100*time.Millisecond, log)
	ckpt.Start()
	defer ckpt.Stop()

	pages := make([]*bufpool.Page, 64)
	for i := range pages {
		pages[i] = bufpool.NewPage(0, uint32(i))
	}

	cmd := mtr.NewCommand(flush)

	for i := 0; i < *nMtrs; i++ {
		m := mtr.New(redo, i)
		if err := m.Start(false); err != nil {
			log.Named("mtrdemo").WithField("err", err).Warn("mtr start refused")
			continue
		}

		page := pages[i%len(pages)]
		m.XLatchPage(page)
		m.PushRecord(mtr.MLOGRecInsert, []byte(fmt.Sprintf("row-%d", i)))

		if err := cmd.Execute(m); err != nil {
			log.Named("mtrdemo").WithField("err", err).Warn("mtr commit failed")
		}
	}

	time.Sleep(200 * time.Millisecond)

	fmt.Printf("write_lsn=%d buf_dirty_pages_added_up_to_lsn=%d last_checkpoint_lsn=%d\n",
		redo.WriteLSN(), redo.BufDirtyPagesAddedUpToLSN(), redo.LastCheckpointLSN())
}
