/*
Package objectstore provides a backend-agnostic object persistence core for Go applications:
a type-indexed registry mapping identifiable entities to pluggable storage backends, fronted
by an in-process read cache and lazy reference handles.

Components:
  - Manager[E]: one per entity class; combines an optional Cache with a driver
  - Source: owns one Manager per class and dispatches by entity type
  - Proxy[E]: a cheap deferred handle (key + manager) resolved on demand
  - Observer: diagnostics surface (load requests, batch misses, cache hits)

Drivers implement datastore.Connector and live under datastore/ (filestore, sqlstore,
ddb, mock). Application code only ever talks to the Source or a Manager.

Basic Usage:

	src := objectstore.NewSource()

	// Attach a driver for each class
	books, _ := objectstore.Attach[*Book](src, bookDriver, objectstore.WithCache(true))
	if err := src.Start(ctx); err != nil {
	    return err
	}
	defer src.Close()

	// Dispatch by type through the source
	err := objectstore.Create(ctx, src, &Book{ID: 1, Title: "Dune"})
	book, ok, err := objectstore.Load[*Book](ctx, src, 1)

	// Or talk to the manager directly
	sequels, err := books.LoadRelation(ctx, "sequels", 1)
	ref := books.BuildProxy(2)
	sequel, ok, err := ref.Resolve(ctx)

Not found is a normal outcome: loads return (zero, false, nil) and batch loads drop keys
that do not resolve. Backend failures are always returned, and the cache is only updated
after the driver call succeeded.

The core does not synchronize check-then-act sequences: two concurrent loads of the same
uncached key may both reach the driver. WithLoadCollapsing makes them share one fetch.
*/
package objectstore
