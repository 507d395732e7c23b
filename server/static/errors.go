package static

import "errors"

// ErrNotFound covers every reason a file can't be opened for reading
var ErrNotFound = errors.New("file not found")
