/*
Package ledger keeps a SQLite record of site builds: one row per build run
and one row per page with the content hash of its last rendered output and
the navigation links flagged on it. Builds use the stored hash to skip pages
whose output would not change, and the preview API reads the same tables
for its build statistics.
*/
package ledger
