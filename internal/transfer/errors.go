package transfer

import "errors"

// Error kinds from spec.md §7. AddressResolution and BroadcastUnreachable
// are handled by the netinfo/discovery packages; the rest are per-file or
// per-connection and never abort the batch or the accept loop.
var (
	ErrConnectRefused    = errors.New("transfer: connection refused")
	ErrHeaderTruncated   = errors.New("transfer: header truncated")
	ErrTransportLost     = errors.New("transfer: connection lost")
	ErrProtocolViolation = errors.New("transfer: unexpected control token")
	ErrTargetUnwritable  = errors.New("transfer: target path is not writable")
	ErrRejected          = errors.New("transfer: receiver rejected the file")
	ErrUserCanceled      = errors.New("transfer: canceled by user")
	ErrUserSkipped       = errors.New("transfer: skipped by user")
)
