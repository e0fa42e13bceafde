package rmindex

import "errors"

// Sentinel errors for the public facade (spec §7 Error Handling Design).
var (
	// ErrNotFound is returned by Get/Erase when the key is absent.
	ErrNotFound = errors.New("rmindex: key not found")
	// ErrDuplicateKey is returned by Insert when duplicates are disallowed
	// and the key already exists.
	ErrDuplicateKey = errors.New("rmindex: duplicate key")
	// ErrRetryLater is returned when a concurrent restructure holds the
	// target leaf; the caller is expected to retry the same call (spec §7:
	// "a concurrent restructure holds the leaf; caller must retry").
	ErrRetryLater = errors.New("rmindex: retry later, concurrent restructure in progress")
	// ErrDomainViolation names a key outside the domain fixed at
	// construction (spec §4.6, Open Question 1). No Index method returns
	// it; rmkey.Domain.ByteKey reports that condition as
	// rmkey.ErrDomainViolation.
	ErrDomainViolation = errors.New("rmindex: key outside configured domain")
	// ErrInvariantBroken indicates a bug — an empty fanout partition, a
	// bitmap/array inconsistency — that should never occur in a correct
	// implementation (spec §7). It is returned rather than panicking so a
	// caller embedding the index can decide how to fail.
	ErrInvariantBroken = errors.New("rmindex: invariant broken")
	// ErrBulkLoadNotEmpty is returned by BulkLoad when the index already
	// holds entries (spec §6: "rejects if index non-empty").
	ErrBulkLoadNotEmpty = errors.New("rmindex: bulk load requires an empty index")
	// ErrBulkLoadEmptySequence is returned by BulkLoad when given zero
	// entries (spec §6: "rejects if ... sequence empty").
	ErrBulkLoadEmptySequence = errors.New("rmindex: bulk load requires a non-empty sequence")
	// ErrUnsorted is returned by BulkLoad when the input is not sorted
	// ascending by key, a precondition spec §6 assumes silently.
	ErrUnsorted = errors.New("rmindex: bulk load input must be sorted ascending")
)

func rmindexErrorf(op string, err error) error {
	return errors.New("rmindex: " + op + ": " + err.Error())
}
