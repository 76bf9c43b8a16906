package opdb

import "errors"

var ErrNotFound = errors.New("opdb: key not found")
