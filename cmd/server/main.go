// server is the permanode indexing and query service's entrypoint: it
// loads configuration, connects one storage session per configured
// keyspace, wires the collector and syncer behind the supervisor, and
// serves the query façade's HTTP surface.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"permanode/internal/collector"
	"permanode/internal/config"
	"permanode/internal/partition"
	"permanode/internal/query"
	"permanode/internal/storage"
	"permanode/internal/supervisor"
	"permanode/internal/syncer"
	"permanode/pkg/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	partitioner := partition.New(cfg.Partition.ChunkSize, cfg.Partition.PartitionCount)

	keyspaces := make(map[string]*query.KeyspaceStore, len(cfg.Server.Keyspaces))
	sinks := make(map[string]collector.KeyspaceSinks, len(cfg.Server.Keyspaces))
	var sessions []*storage.Session

	for _, name := range cfg.Server.Keyspaces {
		storageCfg := cfg.Storage
		storageCfg.Keyspace = name

		sess, err := storage.Connect(storageCfg)
		if err != nil {
			log.Fatalf("failed to connect keyspace %s: %v", name, err)
		}
		sessions = append(sessions, sess)

		ks := query.NewKeyspaceStore(sess, partitioner, cfg.Paging.FetchSize)
		keyspaces[name] = ks

		sinks[name] = collector.KeyspaceSinks{
			Messages:     ks.Messages,
			Parents:      ks.Parents,
			Addresses:    ks.Addresses,
			Indexes:      ks.Indexes,
			Hints:        storage.NewHintsTable(sess),
			Transactions: ks.Transactions,
			Outputs:      ks.Outputs,
		}
	}

	sup := supervisor.New(2*time.Second, 5)

	coll, err := collector.New(collector.Config{
		MsgCacheSize:    cfg.Collector.MsgCacheSize,
		MsgRefCacheSize: cfg.Collector.MsgRefCacheSize,
		DefaultKeyspace: cfg.Collector.DefaultKeyspace,
	}, partitioner, sinks, nil)
	if err != nil {
		log.Fatalf("failed to build collector: %v", err)
	}

	if cfg.Broker.Enabled {
		feed := collector.NewPahoFeed(cfg.Broker)
		sup.Add(&supervisor.Child{
			Name: "collector",
			Run: func(ctx context.Context) error {
				go func() {
					if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
						log.Printf("broker feed stopped: %v", err)
					}
				}()
				return collector.Run(ctx, coll, feed)
			},
		})
		sup.RegisterShutdownFunc("broker feed", 10, func(context.Context) error {
			return feed.Close()
		})
	}

	defaultKeyspace := cfg.Collector.DefaultKeyspace
	if defaultSession, ok := keyspaces[defaultKeyspace]; ok {
		sy, err := syncer.New(ctx, syncer.Config{
			SolidifierCount: cfg.Syncer.SolidifierCount,
			Keyspace:        defaultKeyspace,
		}, defaultSession.Sync, noopArchiver{}, noopSolidifier{})
		if err != nil {
			log.Fatalf("failed to build syncer: %v", err)
		}
		sup.Add(&supervisor.Child{Name: "syncer", Run: sy.Run})
		sup.RegisterShutdownFunc("syncer", 5, func(context.Context) error {
			sy.Shutdown()
			return nil
		})
	}

	deps := &query.Deps{
		Keyspaces:       keyspaces,
		DefaultPageSize: cfg.Server.DefaultPageSize,
		IndexPageSize:   cfg.Server.IndexPageSize,
		Version:         "0.1.0",
		Supervisor:      sup,
	}
	router := query.NewRouter(deps, cfg.Server.RequestTimeout, cfg.Server.EnableCircuitBrk)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	sup.RegisterShutdownFunc("http server", 1, func(ctx context.Context) error {
		return httpServer.Shutdown(ctx)
	})
	for _, sess := range sessions {
		sess := sess
		sup.RegisterShutdownFunc("storage session", 20, func(context.Context) error {
			sess.Close()
			return nil
		})
	}

	go func() {
		log.Printf("🚀 starting permanode query façade on %s", httpServer.Addr)
		log.Printf("📡 keyspaces: %v", cfg.Server.Keyspaces)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	go sup.Run(ctx)

	<-ctx.Done()
	log.Printf("shutting down")
	sup.Shutdown(context.Background(), 30*time.Second)
}

// noopSolidifier and noopArchiver stand in for the network solidifier and
// the archiver sink, both external collaborators out of scope per spec.md
// §1; a real deployment supplies concrete implementations over the wire.
type noopSolidifier struct{}

func (noopSolidifier) Solidify(ctx context.Context, ms types.MilestoneIndex) (types.MilestoneRecord, error) {
	<-ctx.Done()
	return types.MilestoneRecord{}, ctx.Err()
}

type noopArchiver struct{}

func (noopArchiver) Archive(ctx context.Context, md syncer.MilestoneData) error {
	return nil
}
