// Copyright 2025 Certen Protocol

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caas-systems/audit-core/pkg/anchor"
	"github.com/caas-systems/audit-core/pkg/anchor/evm"
	"github.com/caas-systems/audit-core/pkg/anchor/noop"
	"github.com/caas-systems/audit-core/pkg/anchor/notary"
	"github.com/caas-systems/audit-core/pkg/archive"
	"github.com/caas-systems/audit-core/pkg/config"
	fsclient "github.com/caas-systems/audit-core/pkg/firestore"
	"github.com/caas-systems/audit-core/pkg/intercept"
	"github.com/caas-systems/audit-core/pkg/ledger"
	"github.com/caas-systems/audit-core/pkg/metrics"
	"github.com/caas-systems/audit-core/pkg/pipeline"
	"github.com/caas-systems/audit-core/pkg/policy"
	"github.com/caas-systems/audit-core/pkg/proof"
	fssink "github.com/caas-systems/audit-core/pkg/sink/firestore"
)

// HealthStatus tracks component health for the /health endpoint.
type HealthStatus struct {
	Status        string `json:"status"`
	Interceptor   string `json:"interceptor"`
	Pipeline      string `json:"pipeline"`
	Database      string `json:"database"`
	Firestore     string `json:"firestore"`
	Anchor        string `json:"anchor"`
	UptimeSeconds int64  `json:"uptime_seconds"`

	mu        sync.RWMutex
	startTime time.Time
}

func newHealthStatus() *HealthStatus {
	return &HealthStatus{
		Status:      "starting",
		Interceptor: "active",
		Pipeline:    "active",
		Database:    "disabled",
		Firestore:   "disabled",
		Anchor:      "noop",
		startTime:   time.Now(),
	}
}

func (h *HealthStatus) set(field *string, value, overall string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	*field = value
	if overall != "" {
		h.Status = overall
	}
}

func (h *HealthStatus) toJSON() []byte {
	h.mu.Lock()
	h.UptimeSeconds = int64(time.Since(h.startTime).Seconds())
	h.mu.Unlock()
	h.mu.RLock()
	defer h.mu.RUnlock()
	data, _ := json.Marshal(h)
	return data
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting audit-core service")

	var (
		devMode = flag.Bool("dev", false, "use relaxed configuration validation for local development")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	if *devMode {
		if err := cfg.ValidateForDevelopment(); err != nil {
			log.Fatal("configuration invalid: ", err)
		}
	} else if err := cfg.Validate(); err != nil {
		log.Fatal("configuration invalid: ", err)
	}

	health := newHealthStatus()
	met := metrics.New()

	compiler := policy.NewCompiler()

	led := ledger.New(
		ledger.WithBatchSize(cfg.BatchSize),
		ledger.WithRecorder(met),
		ledger.WithLogger(log.New(os.Stderr, "[Ledger] ", log.LstdFlags)),
	)

	aapConfig, err := loadAAPConfiguration(cfg)
	if err != nil {
		log.Fatalf("failed to load AAP configuration: %v", err)
	}

	pipe := pipeline.New(led,
		pipeline.WithConfiguration(aapConfig),
		pipeline.WithLogger(log.New(os.Stderr, "[Pipeline] ", log.LstdFlags)),
	)
	pipe.RegisterHandler(met.RecordProcessed)

	cei := intercept.New(cfg.InterceptorQueue,
		intercept.WithRecorder(met),
		intercept.WithLogger(log.New(os.Stderr, "[Interceptor] ", log.LstdFlags)),
	)

	builder := proof.NewBuilder(led)

	anchorProvider := buildAnchorProvider(cfg, health)

	archiveClient, err := connectArchive(cfg, health)
	if err != nil && cfg.DatabaseRequired {
		log.Fatalf("archive database required but unavailable: %v", err)
	}
	if archiveClient != nil {
		defer archiveClient.Close()
	}

	firestoreSink, firestoreClient := connectFirestoreSink(cfg, health)
	if firestoreClient != nil {
		defer firestoreClient.Close()
		cei.RegisterObserver(firestoreSink.ObserveEvent)
		pipe.RegisterHandler(firestoreSink.ObserveProcessed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go runConsumer(ctx, &wg, cei, pipe, led, compiler, builder, archiveClient, anchorProvider)

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: met.Handler()}
	go func() {
		log.Printf("metrics listening on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(health.toJSON())
	})
	healthMux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		stats := pipe.Stats()
		json.NewEncoder(w).Encode(stats)
	})
	healthServer := &http.Server{Addr: cfg.HealthAddr, Handler: healthMux}
	go func() {
		log.Printf("health server listening on %s", cfg.HealthAddr)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()

	health.set(&health.Status, "ok", "ok")
	log.Println("audit-core ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down audit-core")
	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("health server shutdown error: %v", err)
	}
	log.Println("audit-core stopped")
}

// runConsumer is the single consumer draining CEI into AAP (spec.md §5): it
// never runs concurrently with itself, so Pipeline.Process's ledger appends
// stay ordered per this process. After each processed event it anchors any
// newly sealed Merkle batch and, when an archive is configured, exports a
// single-record bundle for the record it just appended.
func runConsumer(ctx context.Context, wg *sync.WaitGroup, cei *intercept.Interceptor, pipe *pipeline.Pipeline, led *ledger.Ledger, compiler *policy.Compiler, builder *proof.Builder, archiveClient *archive.Client, anchorProvider anchor.Provider) {
	defer wg.Done()
	sealedCount := led.SealedTreeCount()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		event, ok := cei.GetEvent(500 * time.Millisecond)
		if !ok {
			continue
		}

		var pol *policy.CanonicalPolicy
		if policyID, hasPolicy := event.Metadata["policy_id"].(string); hasPolicy {
			pol, _ = compiler.Get(policyID)
		}

		var criticality pipeline.Criticality
		if c, ok := event.Metadata["criticality"].(string); ok {
			criticality = pipeline.Criticality(c)
		}

		processed, err := pipe.Process(event, pol, criticality)
		if err != nil {
			log.Printf("pipeline: failed to process event_id=%s: %v", event.EventID, err)
			continue
		}

		if n := led.SealedTreeCount(); n > sealedCount {
			anchorSealedBatch(ctx, builder, led, anchorProvider, n-1)
			sealedCount = n
		}

		if archiveClient != nil {
			archiveRecord(ctx, builder, archiveClient, processed.Record.RecordID)
		}
	}
}

// anchorSealedBatch anchors the Merkle root of the newly sealed batch at
// treeIndex and records the resulting AnchoringReference for future
// bundles to pick up.
func anchorSealedBatch(ctx context.Context, builder *proof.Builder, led *ledger.Ledger, provider anchor.Provider, treeIndex int) {
	tree, ok := led.Tree(treeIndex)
	if !ok {
		return
	}
	ref, err := provider.Anchor(ctx, tree.Root(), map[string]interface{}{"batch_index": treeIndex})
	if err != nil {
		log.Printf("anchor: failed to anchor batch %d: %v", treeIndex, err)
		return
	}
	builder.AddAnchoringReference(*ref)
}

// archiveRecord exports a single-record bundle for recordID to the archive
// database, logging but not failing the pipeline on write errors (the
// archive is a downstream export, not the ledger's own storage).
func archiveRecord(ctx context.Context, builder *proof.Builder, archiveClient *archive.Client, recordID string) {
	bundle, ok := builder.SingleRecord(recordID, true)
	if !ok {
		return
	}
	if err := archiveClient.Store(ctx, bundle); err != nil {
		log.Printf("archive: failed to store bundle for record_id=%s: %v", recordID, err)
	}
}

// loadAAPConfiguration returns the default AAP Configuration unless
// cfg.AAPConfigPath names a YAML overlay.
func loadAAPConfiguration(cfg *config.Config) (*pipeline.Configuration, error) {
	if cfg.AAPConfigPath == "" {
		return pipeline.NewConfiguration(), nil
	}
	return config.LoadAAPConfig(cfg.AAPConfigPath)
}

// buildAnchorProvider selects the configured anchor.Provider, falling back
// to the dependency-free noop provider when neither EVM nor notary
// anchoring is enabled.
func buildAnchorProvider(cfg *config.Config, health *HealthStatus) anchor.Provider {
	if cfg.AnchorEnabled {
		provider, err := evm.New(evm.Config{
			RPCURL:        cfg.EthereumURL,
			ChainID:       cfg.EthChainID,
			PrivateKeyHex: cfg.EthPrivateKey,
			TargetAddress: cfg.AnchorTargetAddress,
		})
		if err != nil {
			log.Printf("evm anchor provider unavailable, falling back to noop: %v", err)
			health.set(&health.Anchor, "noop", "")
			return noop.New()
		}
		health.set(&health.Anchor, "evm", "")
		return provider
	}

	if cfg.NotaryEnabled {
		health.set(&health.Anchor, "notary", "")
		return notary.New([]byte(cfg.NotarySigningKey), cfg.NotaryIssuer)
	}

	health.set(&health.Anchor, "noop", "")
	return noop.New()
}

// connectArchive opens the optional Postgres export sink. A failure is
// fatal only when cfg.DatabaseRequired; otherwise the core degrades to
// running without durable export.
func connectArchive(cfg *config.Config, health *HealthStatus) (*archive.Client, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}

	client, err := archive.NewClient(cfg, archive.WithLogger(log.New(os.Stderr, "[Archive] ", log.LstdFlags)))
	if err != nil {
		health.set(&health.Database, "disconnected", "degraded")
		return nil, err
	}

	if err := client.MigrateUp(context.Background()); err != nil {
		log.Printf("archive migrations failed: %v", err)
	}
	health.set(&health.Database, "connected", "")
	return client, nil
}

// connectFirestoreSink wires the optional Firestore compliance mirror. A
// disabled or failed connection yields a nil sink; callers must check
// before registering it as an observer/handler.
func connectFirestoreSink(cfg *config.Config, health *HealthStatus) (*fssink.Sink, *fsclient.Client) {
	if !cfg.FirestoreEnabled {
		return nil, nil
	}

	client, err := fsclient.NewClient(context.Background(), &fsclient.ClientConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsFile: cfg.FirebaseCredentialsFile,
		Enabled:         true,
		Logger:          log.New(os.Stderr, "[Firestore] ", log.LstdFlags),
	})
	if err != nil {
		log.Printf("firestore sink unavailable: %v", err)
		health.set(&health.Firestore, "disconnected", "degraded")
		return nil, nil
	}

	health.set(&health.Firestore, "connected", "")
	return fssink.New(client), client
}
