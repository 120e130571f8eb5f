package harvest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"emmakit/pkg/auth"
	"emmakit/pkg/checkpoint"
	"emmakit/pkg/config"
	"emmakit/pkg/gazetteer"
	"emmakit/pkg/logger"
	"emmakit/pkg/network"
	"emmakit/pkg/storage"
	"emmakit/pkg/twitter"

	"github.com/google/uuid"
)

// Harvester runs network harvests with the side channels configured in
// config.HarvestConfig: an optional edge log and a resumable checkpoint.
type Harvester struct {
	cfg         *config.Config
	client      TwitterAPI
	logger      logger.Logger
	credentials *auth.Manager
	runID       string

	gazOnce sync.Once
	gaz     *gazetteer.Gazetteer
	gazErr  error
}

// Option configures a Harvester
type Option func(*Harvester)

// WithClient replaces the Twitter client built from configuration
func WithClient(c TwitterAPI) Option {
	return func(h *Harvester) { h.client = c }
}

// WithLogger replaces the logger built from configuration
func WithLogger(l logger.Logger) Option {
	return func(h *Harvester) { h.logger = l }
}

// WithCredentialManager sets where the configured credential profile is read from
func WithCredentialManager(m *auth.Manager) Option {
	return func(h *Harvester) { h.credentials = m }
}

// New wires a Harvester from configuration. When a credential profile is
// configured its keys fill any that the configuration leaves empty.
func New(cfg *config.Config, opts ...Option) (*Harvester, error) {
	h := &Harvester{
		cfg:   cfg,
		runID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.logger == nil {
		l, err := logger.New(&cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		h.logger = l
	}
	h.logger = h.logger.WithField("run_id", h.runID)

	if profile := cfg.Credentials.Profile; profile != "" {
		if err := h.applyProfile(profile); err != nil {
			return nil, err
		}
	}

	if h.client == nil {
		client, err := twitter.NewClient(cfg, twitter.WithLogger(h.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create twitter client: %w", err)
		}
		h.client = client
	}

	return h, nil
}

func (h *Harvester) applyProfile(profile string) error {
	if h.credentials == nil {
		m, err := auth.NewManager()
		if err != nil {
			return fmt.Errorf("failed to open credential stores: %w", err)
		}
		h.credentials = m
	}

	creds, err := h.credentials.Retrieve(profile)
	if err != nil {
		return fmt.Errorf("failed to load credential profile %q: %w", profile, err)
	}
	h.cfg.ApplyCredentials(creds)
	h.logger.DebugWithFields("Applied credential profile", map[string]interface{}{
		"profile": profile,
	})
	return nil
}

// RunID identifies this harvester in logs and checkpoints
func (h *Harvester) RunID() string {
	return h.runID
}

// FollowNetwork harvests the follow subgraph induced by seeds. Edges are
// appended to the configured edge log as each seed completes, and progress
// is checkpointed so an interrupted run can resume with resume=true.
func (h *Harvester) FollowNetwork(ctx context.Context, seeds []string, resume bool) (*network.FollowGraph, error) {
	ids, err := twitter.ParseIdentifiers(seeds)
	if err != nil {
		return nil, err
	}

	opts := network.FollowOptions{Logger: h.logger}

	if path := h.cfg.Harvest.EdgeLog; path != "" {
		edgeLog, err := storage.OpenEdgeLog(path)
		if err != nil {
			return nil, err
		}
		defer edgeLog.Close()
		opts.Sink = edgeLog
	}

	mgr, cp := h.openCheckpoint(seeds, resume)
	if cp != nil {
		opts.Skip = cp.CompletedSeeds
		opts.Progress = func(seed int64, edges int) error {
			if err := mgr.RecordSeed(cp, seed, edges); err != nil {
				h.logger.WithError(err).Warn("Failed to update checkpoint")
			}
			return nil
		}
	}

	h.logger.InfoWithFields("Starting follow network harvest", map[string]interface{}{
		"seeds":  len(ids),
		"resume": resume && cp != nil && len(cp.CompletedSeeds) > 0,
	})

	graph, err := network.FollowNetwork(ctx, h.client, ids, opts)
	if err != nil {
		return graph, err
	}

	if cp != nil {
		h.finishCheckpoint(mgr, cp, graph)
	}

	h.logger.InfoWithFields("Follow network harvest finished", map[string]interface{}{
		"seeds":  len(graph.Seeds),
		"edges":  len(graph.Edges),
		"failed": len(graph.Failed),
	})

	if len(graph.Failed) > 0 && !h.cfg.Harvest.SkipFailures {
		return graph, fmt.Errorf("followers could not be fetched for %d seeds: %v", len(graph.Failed), graph.Failed)
	}
	return graph, nil
}

// checkpointName is stable for a seed set regardless of order
func checkpointName(seeds []string) string {
	normalized := make([]string, len(seeds))
	for i, s := range seeds {
		normalized[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "@"))
	}
	sort.Strings(normalized)
	return "follow-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(strings.Join(normalized, ","))).String()
}

// openCheckpoint loads or creates the checkpoint for seeds. Checkpoint
// problems are logged and the harvest continues without one.
func (h *Harvester) openCheckpoint(seeds []string, resume bool) (*checkpoint.Manager, *checkpoint.Checkpoint) {
	mgr, err := checkpoint.NewManager(h.cfg.Harvest.CheckpointDir, checkpointName(seeds), h.logger)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to create checkpoint manager")
		return nil, nil
	}

	if resume && mgr.Exists() {
		cp, err := mgr.Load()
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load checkpoint, starting over")
		} else if cp != nil {
			h.logger.InfoWithFields("Resuming from checkpoint", map[string]interface{}{
				"previous_run": cp.RunID,
				"completed":    len(cp.CompletedSeeds),
				"edge_count":   cp.EdgeCount,
			})
			return mgr, cp
		}
	}

	cp, err := mgr.Create(h.runID, seeds, h.cfg.Harvest.EdgeLog)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to create checkpoint")
		return nil, nil
	}
	return mgr, cp
}

// finishCheckpoint records failed seeds, or removes the checkpoint when every seed completed
func (h *Harvester) finishCheckpoint(mgr *checkpoint.Manager, cp *checkpoint.Checkpoint, graph *network.FollowGraph) {
	if len(graph.Failed) == 0 {
		if err := mgr.Delete(); err != nil {
			h.logger.WithError(err).Warn("Failed to delete checkpoint")
		}
		return
	}
	for _, seed := range graph.Failed {
		if err := mgr.RecordFailure(cp, seed); err != nil {
			h.logger.WithError(err).Warn("Failed to update checkpoint")
			return
		}
	}
}

// Export writes a finished edge list to path
func (h *Harvester) Export(path string, edges []network.Edge) error {
	if err := storage.SaveEdges(path, edges); err != nil {
		return err
	}
	h.logger.InfoWithFields("Edges exported", map[string]interface{}{
		"path":  path,
		"edges": len(edges),
	})
	return nil
}
