package botrelay

import "errors"

var errNoTransport = errors.New("no a2a transport configured")
