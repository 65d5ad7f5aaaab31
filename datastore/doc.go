/*
Package datastore defines the persistence contract every objectstore backend implements.

The main interface is Connector[E], nine operations over one entity class:

	type Connector[E storagemodels.Identifiable] interface {
	    GetByPrimaryKey(ctx context.Context, key int64) (E, bool, error)
	    GetAll(ctx context.Context) ([]E, error)
	    GetPartialByPrimaryKey(ctx context.Context, key int64) (E, bool, error)
	    GetByPrimaryKeys(ctx context.Context, keys []int64) ([]E, error)
	    GetRelatedIDs(ctx context.Context, relation string, key int64) ([]int64, error)
	    GetIDsForSet(ctx context.Context, setID string, params ...any) ([]int64, error)
	    Create(ctx context.Context, entity E) error
	    Update(ctx context.Context, entity E) error
	    Delete(ctx context.Context, key int64) error
	}

A backend only has to provide Reader[E] (GetByPrimaryKey and GetAll); WithDefaults
supplies the default behavior for everything else. NopConnector is the explicit
null driver.

Implementations:
  - mock: in-memory driver with call counters for testing
  - filestore: one XML or YAML file per entity class
  - sqlstore: database/sql with the modernc.org/sqlite driver
  - ddb: DynamoDB single-table design

Not found is never an error: reads return (zero, false, nil), relations and sets
return empty sequences, and batch reads drop unresolved keys after reporting them
through ReportMiss.
*/
package datastore
