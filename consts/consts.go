package consts

import "errors"

var (
	Version   = "v0.1.0"
	BuildTime = "unknown"
	GitTag    = "unknown"
)

const (
	DeviceUnknown = "unknown"

	MsgInitializing        = "initializing..."
	MsgInitializingCapture = "initializing network capture"
	MsgCapturing           = "capturing HTTP requests..."
	MsgStopped             = "packet capture stopped"
	MsgNotInitialized      = "capture not initialized"
	MsgCaptureFailed       = "capture failed"
)

// setup errors
var (
	ErrAlreadyInitialized = errors.New("packet capture already initialized")
	ErrStatusInitialized  = errors.New("capture status already initialized")
)

// device errors
var (
	ErrNoDevice            = errors.New("no network device found")
	ErrNoNonLoopbackDevice = errors.New("no non-loopback network device found")
)

// delivery errors
var (
	ErrDestinationFull   = errors.New("destination is full")
	ErrDestinationClosed = errors.New("destination is closed")
)

var ErrProtocal = errors.New("protocol error")
