// Package database provides SQLite connectivity for Gray Logic HASS.
//
// It owns the connection (WAL mode, busy timeout, foreign keys, a single
// pooled connection) and a small forward-only migration runner. Migrations
// are read from any fs.FS, normally the embedded one in package migrations:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql. All queries elsewhere use parameterised
// statements.
package database
