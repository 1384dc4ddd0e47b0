package coordinator

import "errors"

var errNilResult = errors.New("agent returned nil result without error")
