// Package health reports whether the rendering service and its backing
// stores are usable.
//
// A Checker reports a Status for one component. The Aggregator runs a set
// of checkers concurrently under a shared deadline and folds their results
// into one overall status: any unhealthy check makes the service
// unhealthy, any degraded check makes it degraded.
//
// The checks shipped here cover the content database (DatabaseChecker),
// the object cache (CacheChecker) and the block type registry
// (BlockTypesChecker). Mount probes on a router with Mount:
//
//	agg := health.NewAggregator()
//	agg.Register("database", health.NewDatabaseChecker(st))
//	agg.Register("cache", health.NewCacheChecker(oc))
//	health.Mount(r, agg)
package health
