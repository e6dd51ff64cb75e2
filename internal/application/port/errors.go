package port

import "errors"

// ErrVersionConflict is returned by Save when the stored version moved on
var ErrVersionConflict = errors.New("report version conflict")
