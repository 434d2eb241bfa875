// Package continuity maintains a temporally consistent knowledge graph
// for interactive stories.
//
// The package exposes one facade, Continuity, backed by four cooperating
// parts:
//
//   - a validation gate that checks every proposed relationship against
//     ordered write rules before it is stored
//   - a detection engine that scans a story's stored graph for
//     contradictions and persists its findings
//   - a background scheduler that runs those scans on an interval with
//     checkpointing and error backoff
//   - a query gateway that validates and caches ad-hoc read queries
//
// Storage is pluggable behind a small record-store interface with
// in-memory, Badger and Neo4j backends.
//
// Basic usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	client, err := continuity.NewClient(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	verdict, err := client.AddEdge(ctx, storyID, userID,
//		types.EdgeKnows, character, knowledge, nil)
//	if !verdict.Accepted {
//		fmt.Println("rejected:", verdict.Reason)
//	}
//
//	result := client.DetectContradictions(ctx, storyID, userID)
//	fmt.Println("found", result.TotalContradictions, "contradictions")
package continuity
