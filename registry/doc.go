/*
Package registry manages class naming for objectstore.

Every entity class is identified at runtime by its reflect.Type. Human-facing
and storage-facing places (metrics labels, log lines, file names, table names,
DynamoDB key prefixes) need a stable string instead, which this package provides:

	registry.RegisterClassName[*Book]("books")

	registry.ClassName[*Book]()   // "books"
	registry.ClassName[*Author]() // "Author" (derived, pointer stripped)

The registry is thread-safe and should be populated during initialization,
typically in init() functions. Conflicting registrations panic so that two
classes can never share one storage location.
*/
package registry
