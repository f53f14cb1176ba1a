package repositories

import "errors"

var ErrDuplicateID = errors.New("transaction id already exists")
