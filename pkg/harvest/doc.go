// Package harvest wires configuration, credentials, the Twitter client and
// the on-disk side channels into ready-to-run network harvests.
//
//	cfg, err := config.Load("")
//	h, err := harvest.New(cfg)
//	graph, err := h.FollowNetwork(ctx, []string{"nasa", "esa", "jaxa_en"}, true)
//
// A follow harvest appends edges to harvest.edge_log as each seed completes
// and checkpoints progress in harvest.checkpoint_dir; passing resume=true
// after an interruption skips seeds that already finished.
package harvest
