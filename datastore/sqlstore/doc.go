/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package sqlstore provides a relational driver backed by SQLite through
database/sql and modernc.org/sqlite.

A DB owns the database handle shared by every class of a source. It is opened
when the source starts and closed with the source. Each class is mapped to a
table with a Table description:

	players := sqlstore.Table[*Player]{
		Name:    "players",
		Columns: []string{"id", "name", "level"},
		Scan: func(row sqlstore.Scanner) (*Player, error) {
			p := &Player{}
			return p, row.Scan(&p.ID, &p.Name, &p.Level)
		},
		Values: func(p *Player) []any { return []any{p.ID, p.Name, p.Level} },
		Relations: map[string]string{
			"guild_members": "SELECT id FROM players WHERE guild_id = ? ORDER BY id",
		},
	}

	db := sqlstore.New(cfg)
	src := objectstore.NewSource()
	_, _, err := sqlstore.Attach(src, db, players)
	...
	err = src.Start(ctx)
	defer src.Close()

The handle is limited to one connection, so session settings such as
SetForeignKeyChecks apply to every subsequent statement.
*/
package sqlstore
