package models

import "time"

// Account is a tracked content-creator identity. Accounts are created
// externally; the tracker only reads them each cycle and advances the
// last_scraped bookkeeping timestamp.
type Account struct {
	Handle      string     `db:"handle"`
	LastScraped *time.Time `db:"last_scraped"`
	CreatedAt   time.Time  `db:"created_at"`
}
