package devguide

import (
	"errors"

	"github.com/couchbase/gocb/v2"
)

// Errors
var (
	ErrMaxRetriesExceeded = errors.New("maximum number of retries exceeded")
	ErrInsertFailed       = errors.New("insert failed")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrUnknownProfile     = errors.New("unknown cluster configuration profile")
)

// IsAmbiguous reports whether err leaves the outcome of a mutation unknown:
// the server may or may not have applied it.
func IsAmbiguous(err error) bool {
	return errors.Is(err, gocb.ErrDurabilityAmbiguous) ||
		errors.Is(err, gocb.ErrAmbiguousTimeout)
}

// IsTransient reports whether err is a temporary condition that is likely to
// clear up if the same operation is tried again a little later.
func IsTransient(err error) bool {
	return errors.Is(err, gocb.ErrTemporaryFailure) ||
		errors.Is(err, gocb.ErrDurableWriteInProgress) ||
		errors.Is(err, gocb.ErrDurableWriteReCommitInProgress) ||
		errors.Is(err, gocb.ErrCasMismatch)
}

// IsExpected reports whether err is an outcome that applications usually treat
// as a normal result rather than a failure.
func IsExpected(err error) bool {
	return errors.Is(err, gocb.ErrDocumentNotFound) ||
		errors.Is(err, gocb.ErrDocumentExists)
}

// TransactionOutcome is what an application can conclude about a transaction
// from the error Transactions().Run returned.
type TransactionOutcome int

const (
	TransactionCommitted TransactionOutcome = iota
	// TransactionExpired means the transaction ran out of time and was rolled back.
	TransactionExpired
	// TransactionCommitAmbiguous means the commit may or may not have been applied.
	TransactionCommitAmbiguous
	// TransactionRolledBack means the transaction failed and none of its changes were applied.
	TransactionRolledBack
	TransactionUnknown
)

func (o TransactionOutcome) String() string {
	switch o {
	case TransactionCommitted:
		return "committed"
	case TransactionExpired:
		return "expired"
	case TransactionCommitAmbiguous:
		return "commit_ambiguous"
	case TransactionRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// ClassifyTransactionError maps the error returned by Transactions().Run to a
// TransactionOutcome. The SDK returns its transaction errors as pointers.
func ClassifyTransactionError(err error) TransactionOutcome {
	var (
		expired   *gocb.TransactionExpiredError
		ambiguous *gocb.TransactionCommitAmbiguousError
		failed    *gocb.TransactionFailedError
	)
	switch {
	case err == nil:
		return TransactionCommitted
	case errors.As(err, &expired):
		return TransactionExpired
	case errors.As(err, &ambiguous):
		return TransactionCommitAmbiguous
	case errors.As(err, &failed):
		return TransactionRolledBack
	default:
		return TransactionUnknown
	}
}
