// Package sqlstore is a bun + SQLite implementation of store.Store,
// adapted from the teacher's sql package (lease acquisition via a single
// atomic UPDATE ... WHERE id IN (subquery) ... RETURNING statement, the
// same index shape, the same InitDB transaction pattern).
//
// Where the teacher split Pusher/Puller/Observer/Cleaner across separate
// types each wrapping the same *bun.DB, sqlstore collapses them into one
// Store value, since this domain's operation set (spec.md §4.1, §4.4) is
// small enough that the split bought the teacher composability this
// scheduler does not need.
//
// SQLite is opened in WAL mode with a busy_timeout and a single
// connection, exactly as the teacher's helper_test.go does, since
// modernc.org/sqlite does not support concurrent writers.
package sqlstore
