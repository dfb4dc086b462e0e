package devguide

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"
)

// DefaultMaxRetries bounds CASLoop and DoInsert when the caller passes zero.
const DefaultMaxRetries = 10

// Mutation changes a decoded JSON document in place.
type Mutation func(doc map[string]any) error

// tag::replace-retry[]

// RetryOnCASMismatch runs op until it returns anything other than a CAS
// mismatch, and returns that result.
func RetryOnCASMismatch(ctx context.Context, op func() error) error {
	for {
		// Perform the operation
		err := op()
		if !errors.Is(err, gocb.ErrCasMismatch) {
			// If success or any other failure, return it
			return err
		}
		// Retry on a CAS mismatch, unless the caller has given up
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w (last error: %w)", ctxErr, err)
		}
	}
}

// GetAndReplace reads the document id, applies mutate and writes it back,
// starting over whenever another writer got there first.
func GetAndReplace(ctx context.Context, store DocumentStore, id string, mutate Mutation) error {
	// This is the get-and-replace we want to do, as a closure
	op := func() error {
		var content map[string]any
		cas, err := store.Get(id, &content)
		if err != nil {
			return err
		}
		if content == nil {
			content = map[string]any{}
		}
		if err := mutate(content); err != nil {
			return err
		}
		// Passing the CAS makes the replace fail if the document changed in between
		_, err = store.Replace(id, content, cas)
		return err
	}

	// Send the closure to RetryOnCASMismatch to take care of retrying it
	return RetryOnCASMismatch(ctx, op)
}

// end::replace-retry[]

// tag::loop[]

// CASLoop applies mutate to the document id with an optimistic
// read-modify-write, trying at most maxRetries times.
func CASLoop(store DocumentStore, id string, maxRetries int, mutate Mutation) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for i := 0; i < maxRetries; i++ {
		// Get the current document contents
		var content map[string]any
		cas, err := store.Get(id, &content)
		if err != nil {
			return fmt.Errorf("got an error during get: %w", err)
		}
		if content == nil {
			content = map[string]any{}
		}

		// Modify the content
		if err := mutate(content); err != nil {
			return err
		}

		// Try to replace the document, using CAS
		_, err = store.Replace(id, content, cas)
		if errors.Is(err, gocb.ErrCasMismatch) {
			// Someone else modified the document since we read it, so retry
			continue
		}
		if err != nil {
			// Something else went wrong - fast fail
			return fmt.Errorf("something else went wrong during replace: %w", err)
		}

		// Succeeded - we're done
		return nil
	}

	return fmt.Errorf("%w: gave up on %s after %d attempts", ErrMaxRetriesExceeded, id, maxRetries)
}

// IncrementVisitCount adds one to the document's visitCount field.
func IncrementVisitCount(doc map[string]any) error {
	count, _ := doc["visitCount"].(float64)
	doc["visitCount"] = count + 1
	return nil
}

// end::loop[]
