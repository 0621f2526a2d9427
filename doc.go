// Package scoutdex is a retrieval-augmented question-answering engine over a
// periodically refreshed corpus of startup records.
//
// The engine owns the ingestion-indexing-retrieval pipeline: it decides which
// records need (re-)embedding via content fingerprints, keeps a flat vector
// index consistent with record metadata, calibrates similarity scores
// relative to each query's candidate set, and assembles grounded prompts for
// answer generation.
//
// Quick start:
//
//	emb := capability.NewOpenAI(apiKey)
//	blobs, _ := blobstore.NewLocalStore("./index")
//	eng, _ := scoutdex.New(emb, emb, snapshot.NewStore(blobs))
//
//	report, _ := eng.Sync(ctx, source.NewChain(nil,
//	    source.NewFileSource("./data/startups.json"),
//	    source.NewSampleSource(),
//	))
//	results, _ := eng.Search(ctx, "AI healthcare startups", 5)
//	answer, _ := eng.Ask(ctx, "Which startups work on disease detection?")
//
// Sync is single-flight and safe to call from a timer; Search and Ask are
// concurrent and always observe a complete snapshot, never a partially
// merged one.
package scoutdex
