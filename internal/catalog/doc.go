// Package catalog records conversion runs and the frames they produced in a
// SQLite database so subtitle images can be looked up by time after the fact.
//
// One database can be shared by concurrent batch workers; writes retry while
// SQLite reports the database as busy.
package catalog
