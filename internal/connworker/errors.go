package connworker

import "errors"

// Fatal worker errors (spec §4.5.4 / §7). Any of these returned from
// do_work() must cause the owning manager to tear the connection down.
var (
	ErrConnectionClosed  = errors.New("connworker: connection closed")
	ErrUnexpectedBlock   = errors.New("connworker: unexpected block")
	ErrUnexpectedMessage = errors.New("connworker: unexpected message")
	ErrSendFailure       = errors.New("connworker: send failure")
)
