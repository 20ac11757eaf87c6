// Package postgres provides PostgreSQL implementations of the store
// interfaces, built on database/sql with the pgx driver. Errors are mapped
// into the store package's taxonomy by MapError.
package postgres
