package devguide

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"
)

// tag::do_insert[]

// DoInsert inserts doc as id with majority durability, retrying up to
// maxRetries times while the outcome is ambiguous.
func DoInsert(store DocumentStore, id string, doc any, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := store.Insert(id, doc, gocb.DurabilityLevelMajority)

		switch {
		case errors.Is(err, gocb.ErrDocumentExists):
			// If we failed to insert on the first attempt then it's a true error,
			// otherwise we retried due to an ambiguous error, and the operation
			// was actually successful
			if attempt == 0 {
				return fmt.Errorf("%w: %w", ErrInsertFailed, err)
			}
			return nil
		case IsAmbiguous(err):
			// For ambiguous errors on inserts, simply retry them
			continue
		case err != nil:
			// Some other non-ambiguous error occurred
			return fmt.Errorf("%w: %w", ErrInsertFailed, err)
		default:
			// No error
			return nil
		}
	}

	// Maxed-out retry attempts
	return fmt.Errorf("%w: %w", ErrInsertFailed, ErrMaxRetriesExceeded)
}

// end::do_insert[]

// tag::do_insert_real[]

// DoInsertWithBackoff is DoInsert for production use: it also retries
// transient errors, and waits between attempts as told by retryer so that an
// already struggling server is not hammered. A nil retryer uses NewInsertRetryer.
func DoInsertWithBackoff(ctx context.Context, store DocumentStore, id string, doc any, retryer Retryer) error {
	if retryer == nil {
		retryer = NewInsertRetryer()
	}
	defer retryer.Reset()

	for attempt := 0; ; attempt++ {
		_, err := store.Insert(id, doc, gocb.DurabilityLevelMajority)

		switch {
		case errors.Is(err, gocb.ErrDocumentExists):
			// Same logic as DoInsert: only a failure if nothing was retried
			if attempt == 0 {
				return fmt.Errorf("%w: %w", ErrInsertFailed, err)
			}
			return nil
		case IsAmbiguous(err), IsTransient(err):
			// Ambiguous errors: the insert may or may not have succeeded, and
			// retrying it is safe because DocumentExists tells us it did.
			// Transient errors: likely to be resolved on a retry.
			delay, ok := retryer.NextDelay(attempt, err)
			if !ok {
				// Maxed-out retry attempts
				return fmt.Errorf("%w: %w (last error: %w)", ErrInsertFailed, ErrMaxRetriesExceeded, err)
			}
			if sleepErr := sleep(ctx, delay); sleepErr != nil {
				return fmt.Errorf("%w: %w (last error: %w)", ErrInsertFailed, sleepErr, err)
			}
		case err != nil:
			// Some other non-ambiguous and non-transient error occurred
			return fmt.Errorf("%w: %w", ErrInsertFailed, err)
		default:
			return nil
		}
	}
}

// end::do_insert_real[]
