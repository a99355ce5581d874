package cmr

import "errors"

// ErrCollectionNotFound is returned when a DOI lookup matches no collection.
var ErrCollectionNotFound = errors.New("collection not found")
