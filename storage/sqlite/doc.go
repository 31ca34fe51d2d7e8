// Package sqlite stores accounts and refresh tokens in a single SQLite
// database using the pure-Go modernc.org/sqlite driver. Open applies the
// embedded goose migrations before returning.
//
//	db, err := sqlite.Open(ctx, sqlite.Config{Path: "authcore.db"}, log)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	repo, store := db.Accounts(), db.Tokens()
//
// Timestamps are stored as Unix milliseconds in UTC.
package sqlite
