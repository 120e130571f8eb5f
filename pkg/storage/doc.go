// Package storage persists edge lists as two-column tab-separated files.
//
// EdgeLog is the crash-recovery side channel of a follow harvest: it is
// opened in append mode and flushed after every seed, so partial results
// survive an interrupted run. SaveEdges writes a finished edge list with a
// temporary file and rename.
//
//	log, err := storage.OpenEdgeLog("edges.tsv")
//	if err != nil {
//	    return err
//	}
//	defer log.Close()
//	graph, err := network.FollowNetwork(ctx, client, seeds, network.FollowOptions{Sink: log})
package storage
