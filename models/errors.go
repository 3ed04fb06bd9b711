package models

import "errors"

var ErrImmutableRecord = errors.New("record is append-only")
