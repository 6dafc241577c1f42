package handler

import "errors"

var errInvalidCount = errors.New("invalid count")
