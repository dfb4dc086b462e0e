// Package contrib holds tooling that supports the developer guide examples
// but is not part of the shared example helpers.
//
// [github.com/couchbase/docs-sdk-go/contrib/snippets] parses the tag::<name>[]
// and end::<name>[] regions that the documentation build splices into the
// guide, and ships a CLI to list, extract, check and live-preview them.
// [github.com/couchbase/docs-sdk-go/contrib/testenv] opens a cluster from the
// environment for integration tests.
//
// Packages under contrib may change without notice.
package contrib
