// The [devguide] package holds the shared support code behind the Couchbase Go SDK
// developer guide examples.
//
// The examples themselves live under the examples directory, one program per guide
// page. Each program is a plain main package that calls [github.com/couchbase/gocb/v2]
// directly, so that the code spliced into the documentation is exactly the code
// a reader would write.
//
// # Documentation Tags
//
// Regions of source that the documentation includes are delimited by line comments
// carrying an opening tag directive and a matching end directive, in the form
// understood by Asciidoctor includes. The [github.com/couchbase/docs-sdk-go/contrib/snippets]
// package parses, checks and extracts those regions, and every test run verifies
// that they are balanced.
//
// # Connecting
//
// [LoadConfig] reads connection settings from the environment (and an optional .env file),
// [ClusterOptions] turns them into [gocb.ClusterOptions], and [Connect] dials the cluster.
//
// # Retry Patterns
//
// The SDK already retries what it safely can. The helpers in this package show the
// application-level policies the guide teaches on top of that:
//
//   - [RetryOnCASMismatch] and [GetAndReplace] retry an optimistic read-modify-write until
//     it stops failing with a CAS mismatch.
//   - [CASLoop] is the bounded form of the same loop.
//   - [DoInsert] and [DoInsertWithBackoff] retry durable inserts on ambiguous and
//     transient errors.
//
// They operate on the small [DocumentStore] interface so they can run against a
// [CollectionStore] in production and an in-memory fake in tests.
package devguide
