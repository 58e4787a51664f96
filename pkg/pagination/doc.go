// Package pagination walks Discord's offset-paged thread search.
//
// The search endpoint returns at most 25 threads per call together with a
// has_more flag. Threads are ordered by last activity, so a thread that
// receives a message while the walk is in progress can move between pages
// and show up twice. The pager therefore deduplicates by exact {id, name}
// equality and keeps first-seen order.
//
// Example usage:
//
//	pager := pagination.NewPager(discordClient, pagination.DefaultConfig())
//	threads, err := pager.CollectThreads(ctx, channelID)
//	if err != nil {
//		// threads still holds every page fetched before the failure
//	}
//
// The walk is sequential and stops when:
//   - a page reports has_more=false
//   - a page fails (partial results are returned with the error)
//   - the context is cancelled
//   - a page reports has_more=true but carries no threads
//   - MaxPages pages have been fetched
package pagination
