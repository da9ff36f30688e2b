// Package sqlite persists runs and their trajectories in a SQLite database.
//
// Schema is versioned with golang-migrate; migrations are embedded into the binary.
package sqlite
