/*
Package storagemodels defines the data structures shared by the core and every driver.

Key Types:

Identifiable:
The capability bound every persisted entity satisfies:

	type Book struct {
	    ID    int64
	    Title string
	}

	func (b *Book) PrimaryKey() int64 { return b.ID }

Ordering helpers:
Drivers that write deterministic output sort by primary key first:

	sorted := storagemodels.SortByPrimaryKey(books)

SortByPrimaryKey is stable and never mutates its input. ComparePrimaryKeys can be
passed directly to slices.SortFunc and friends.
*/
package storagemodels
