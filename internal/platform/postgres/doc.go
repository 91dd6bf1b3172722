// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package, together with
// the embedded schema migrations they rely on.
//
// Every store accepts a store.DBTX so the same code runs against a pooled
// connection or inside a transaction opened by TxManager.
package postgres
