package gateway

import "errors"

// ErrInvalidParam and ErrNodeUnavailable name handler failures, mirroring
// the original's errors::InvalidParam/errors::NodeError rejections
// (original_source/crates/http-gw/src/client_proxy.rs). handleContract
// serves ErrNodeUnavailable with 502; ErrInvalidParam is the worker's reply
// to a request type it does not handle and is served with 500.
var (
	ErrInvalidParam    = errors.New("invalid parameter")
	ErrNodeUnavailable = errors.New("node unavailable")
)
