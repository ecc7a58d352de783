// Package tasks builds "Is This <Artist>" playlists from an artist's catalog with real-time progress reporting.
//
// # Pipeline
//
// [Engine.Run] chains three stages, each consuming the previous stage's output by value:
//
//  1. [Engine.Discover] : Collect the artist's tracks
//     - Pages through the artist's albums (all pages unless [Options.MaxAlbumPages] caps it)
//     - Resolves the display name from album credits, then track credits
//     - Keeps every album track crediting the artist identifier, in album-then-track order
//
//  2. [Engine.Rank] : Enrich and order the tracks
//     - Reads popularity in contiguous batches of at most 50
//     - Sorts by popularity, descending and stable on ties
//
//  3. [Engine.Assemble] : Create the playlist
//     - Truncates the ranking to the requested count
//     - Creates "Is This <name>" and adds tracks in chunks of at most 50
//     - Reports a created-but-unfilled playlist as a [PopulateError]
//
// [Engine.Search] and [Select] resolve a free-text query to an artist identifier for the same pipeline.
//
// # Progress Reporting
//
// All operations accept an optional channel for progress updates. Sends never block:
// a full or nil channel drops the update.
//
// # Concurrency
//
// Album track listings and enrichment batches are independent. With [Options.Concurrency] above one they run
// on a bounded pool and write into index-addressed slots, so the output never depends on scheduling.
// [Options.RateLimit] throttles every catalog read.
package tasks
