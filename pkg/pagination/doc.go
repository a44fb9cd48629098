// Package pagination retrieves the requested-resources task list page by
// page and enriches every resource on the way.
//
// Alma reports the total record count with the first page. The Finder
// fetches page 0 to learn it, plans the remaining pages, and then drives a
// greedy-replacement pipeline: whenever a page's listing settles, its
// enrichment subtasks join the pending pool and the next page starts. At
// any instant the pipeline holds the outstanding enrichment work of the
// pages already listed plus one page listing in flight.
//
// Example usage:
//
//	set := enrich.NewSet(almaClient)
//	finder := pagination.NewFinder(almaClient, set, pagination.Query{
//		Library:    "MAIN",
//		CircDesk:   "DEFAULT_CIRC_DESK",
//		Enrichment: model.EnrichmentOptions{Item: true, User: true},
//	}, pagination.DefaultConfig())
//	resources, err := finder.Find(ctx, 100, func(pct float64) { bar.SetPercent(pct / 100) })
//
// Results come back in upstream order. Any listing or enrichment failure
// aborts the whole run; only nested lookups the enrichment tasks choose to
// swallow are tolerated.
package pagination
