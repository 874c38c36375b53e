package eventstream

import "errors"

// ErrNilExchangeEvent indicates a nil exchange event was passed to a publisher.
var ErrNilExchangeEvent = errors.New("nil exchange event")
