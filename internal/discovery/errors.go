package discovery

import "errors"

// ErrBrowseFailed is returned when the mDNS listener cannot be started.
var ErrBrowseFailed = errors.New("discovery: browse failed")
