/*
Package ddb provides a DynamoDB driver using a single-table design.

Each entity is stored as one item. The item holds the entity attributes, as
marshaled by attributevalue, plus the key attributes expanded from an IndexMap:

	ddb.IndexMap{
	    "PK":  "{class}#{key}",   // Becomes "Player#0000000000000000042"
	    "SK":  "{class}#{key}",
	    "PK1": "{class}",         // GSI1 partition: every item of the class
	    "SK1": "{key}",           // GSI1 sort: key order
	    "PK2": "GUILD#{GuildID}", // Extra index, expanded from entity fields
	}

{class} and {key} are always available; any other macro names an attribute of
the marshaled entity. Every item also carries EntityType (the class name) and
ObjectKey (the numeric primary key).

Relations are adjacency items stored in the partition of their root entity,
with sort keys REL#<relation>#<key>. Named sets are queries built with a
QueryBuilder:

	driver, err := ddb.NewDriver[*Player](client, "objects", "Player",
	    ddb.WithIndexMap(indexMap),
	    ddb.WithSet("guild", func(q *ddb.QueryBuilder, params ...any) (*ddb.QueryBuilder, error) {
	        return q.OnIndex(ddb.GSIConfig{IndexName: "GSI2", PartitionKeyName: "PK2", SortKeyName: "SK2"}).
	            WithPartitionKey(fmt.Sprintf("GUILD#%v", params[0])), nil
	    }),
	)

Reads page through results with retry on throttling; the streaming API exposes
the same paging to callers:

	for res := range driver.Stream(ctx, input, ddb.WithPageSize(25)) {
	    ...
	}
*/
package ddb
