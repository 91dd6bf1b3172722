//go:build integration

// Package testdb provides utilities for database integration tests.
//
// Tests run against the database named by LEARNPLAN_TEST_DB_URL (or
// DATABASE_URL) and are skipped when neither is set. The schema is migrated
// once per test binary with the embedded goose migrations. Each test then runs
// in its own transaction, which is rolled back when the test completes, so
// tests can run in parallel without seeing each other's rows.
//
//	func TestPlanStoreRoundTrip(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        plans := postgres.NewPostgresPlanStore(tx, nil)
//	        // ...
//	    })
//	}
package testdb
