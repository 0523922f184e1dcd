// Package att implements the server side of the Attribute Protocol for a
// single bridged characteristic. It runs on any bearer that delivers one ATT
// PDU per Read, such as an L2CAP socket on the fixed ATT channel.
package att

import "github.com/pkg/errors"

// Opcodes.
const (
	opError               = 0x01
	opMTUReq              = 0x02
	opMTUResponse         = 0x03
	opFindInfoReq         = 0x04
	opFindInfoResponse    = 0x05
	opFindByTypeReq       = 0x06
	opFindByTypeResponse  = 0x07
	opReadByTypeReq       = 0x08
	opReadByTypeResponse  = 0x09
	opReadReq             = 0x0a
	opReadResponse        = 0x0b
	opReadBlobReq         = 0x0c
	opReadBlobResponse    = 0x0d
	opReadMultiReq        = 0x0e
	opReadByGroupReq      = 0x10
	opReadByGroupResponse = 0x11
	opWriteReq            = 0x12
	opWriteResponse       = 0x13
	opPrepWriteReq        = 0x16
	opExecWriteReq        = 0x18
	opHandleNotify        = 0x1b
	opHandleInd           = 0x1d
	opHandleCNF           = 0x1e
	opWriteCmd            = 0x52
	opSignedWriteCmd      = 0xd2

	// opCommandFlag is set in every opcode that must not be answered.
	opCommandFlag = 0x40
)

// GATT attribute types.
const (
	uuidGAPService     = 0x1800
	uuidDeviceName     = 0x2a00
	uuidPrimaryService = 0x2800
	uuidCharacteristic = 0x2803

	maxAttributeValue   = 512
	defaultServerMaxMTU = 247
)

// ErrorCode is an ATT error code, sent to the client in an Error Response.
type ErrorCode uint8

const (
	ErrInvalidHandle          ErrorCode = 0x01
	ErrReadNotPermitted       ErrorCode = 0x02
	ErrWriteNotPermitted      ErrorCode = 0x03
	ErrInvalidPDU             ErrorCode = 0x04
	ErrInsufficientAuth       ErrorCode = 0x05
	ErrRequestNotSupported    ErrorCode = 0x06
	ErrInvalidOffset          ErrorCode = 0x07
	ErrAttributeNotFound      ErrorCode = 0x0a
	ErrAttributeNotLong       ErrorCode = 0x0b
	ErrInvalidAttrValueLength ErrorCode = 0x0d
	ErrUnlikely               ErrorCode = 0x0e
	ErrUnsupportedGroupType   ErrorCode = 0x10
	ErrInsufficientResources  ErrorCode = 0x11
)

func (e ErrorCode) Error() string {
	switch e {
	case ErrInvalidHandle:
		return "att: invalid handle"
	case ErrReadNotPermitted:
		return "att: read not permitted"
	case ErrWriteNotPermitted:
		return "att: write not permitted"
	case ErrInvalidPDU:
		return "att: invalid PDU"
	case ErrInsufficientAuth:
		return "att: insufficient authentication"
	case ErrRequestNotSupported:
		return "att: request not supported"
	case ErrInvalidOffset:
		return "att: invalid offset"
	case ErrAttributeNotFound:
		return "att: attribute not found"
	case ErrAttributeNotLong:
		return "att: attribute not long"
	case ErrInvalidAttrValueLength:
		return "att: invalid attribute value length"
	case ErrUnlikely:
		return "att: unlikely error"
	case ErrUnsupportedGroupType:
		return "att: unsupported group type"
	case ErrInsufficientResources:
		return "att: insufficient resources"
	default:
		return "att: unknown error"
	}
}

var (
	// ErrNotRegistered is returned by Serve when no characteristic has been
	// registered.
	ErrNotRegistered = errors.New("att: no characteristic registered")

	// ErrClosed is returned by Listener.Accept once the listener is closed.
	ErrClosed = errors.New("att: server closed")
)
