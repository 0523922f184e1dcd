package att

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"

	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

// session is the per-connection state of the server.
type session struct {
	db     *db
	conn   bridge.ConnectionHandler
	mtu    int
	maxMTU int
	log    logrus.FieldLogger
}

func errorResponse(op byte, handle uint16, code ErrorCode) []byte {
	var b [5]byte
	b[0] = opError
	b[1] = op
	binary.LittleEndian.PutUint16(b[2:], handle)
	b[4] = byte(code)
	return b[:]
}

// handle processes a single PDU and returns the response, or nil when
// nothing must be sent.
func (s *session) handle(pdu []byte) []byte {
	if len(pdu) == 0 {
		return nil
	}
	debug := bridge.DebugEnabled(s.log)
	if debug {
		s.log.WithField("pdu", hex.EncodeToString(pdu)).Debug("att: received")
	}

	op := pdu[0]
	var rsp []byte
	switch op {
	case opMTUReq:
		rsp = s.handleMTUReq(pdu)
	case opFindInfoReq:
		rsp = s.handleFindInfoReq(pdu)
	case opFindByTypeReq:
		rsp = s.handleFindByTypeReq(pdu)
	case opReadByTypeReq:
		rsp = s.handleReadByTypeReq(pdu)
	case opReadReq:
		rsp = s.handleReadReq(pdu)
	case opReadBlobReq:
		rsp = s.handleReadBlobReq(pdu)
	case opReadByGroupReq:
		rsp = s.handleReadByGroupReq(pdu)
	case opWriteReq:
		rsp = s.handleWrite(pdu, true)
	case opWriteCmd:
		s.handleWrite(pdu, false)
	case opHandleCNF, opSignedWriteCmd:
		// Nothing to confirm, no signing key.
	default:
		if op&opCommandFlag == 0 {
			rsp = errorResponse(op, 0, ErrRequestNotSupported)
		}
	}

	if rsp != nil && debug {
		s.log.WithField("pdu", hex.EncodeToString(rsp)).Debug("att: sending")
	}
	return rsp
}

func (s *session) handleMTUReq(pdu []byte) []byte {
	if len(pdu) != 3 {
		return errorResponse(opMTUReq, 0, ErrInvalidPDU)
	}
	mtu := int(binary.LittleEndian.Uint16(pdu[1:]))
	if mtu > s.maxMTU {
		mtu = s.maxMTU
	}
	if mtu < bridge.DefaultUnitSize {
		mtu = bridge.DefaultUnitSize
	}
	s.mtu = mtu
	s.conn.Negotiate(uint16(mtu))

	var b [3]byte
	b[0] = opMTUResponse
	binary.LittleEndian.PutUint16(b[1:], uint16(s.maxMTU))
	return b[:]
}

// handleRange decodes and checks the handle range at the start of a request.
func handleRange(op byte, pdu []byte) (start, end uint16, rsp []byte) {
	start = binary.LittleEndian.Uint16(pdu[1:])
	end = binary.LittleEndian.Uint16(pdu[3:])
	if start == 0 || start > end {
		return 0, 0, errorResponse(op, start, ErrInvalidHandle)
	}
	return start, end, nil
}

func (s *session) handleFindInfoReq(pdu []byte) []byte {
	if len(pdu) != 5 {
		return errorResponse(opFindInfoReq, 0, ErrInvalidPDU)
	}
	start, end, rsp := handleRange(opFindInfoReq, pdu)
	if rsp != nil {
		return rsp
	}

	response := make([]byte, 2, s.mtu)
	response[0] = opFindInfoResponse
	for _, a := range s.db.inRange(start, end) {
		format, length := byte(1), 4
		if !a.uuid.Is16Bit() {
			format, length = 2, 18
		}
		if response[1] == 0 {
			response[1] = format
		} else if response[1] != format {
			// change of UUID size
			break
		}
		if len(response)+length > s.mtu {
			break
		}
		response = binary.LittleEndian.AppendUint16(response, a.handle)
		response = a.uuid.AppendWire(response)
	}
	if len(response) == 2 {
		return errorResponse(opFindInfoReq, start, ErrAttributeNotFound)
	}
	return response
}

// handleFindByTypeReq only matches static values, which in practice means
// discovering a primary service by UUID.
func (s *session) handleFindByTypeReq(pdu []byte) []byte {
	if len(pdu) < 7 {
		return errorResponse(opFindByTypeReq, 0, ErrInvalidPDU)
	}
	start, end, rsp := handleRange(opFindByTypeReq, pdu)
	if rsp != nil {
		return rsp
	}
	typ := bridge.New16BitUUID(binary.LittleEndian.Uint16(pdu[5:]))
	value := pdu[7:]

	response := make([]byte, 1, s.mtu)
	response[0] = opFindByTypeResponse
	for _, a := range s.db.inRange(start, end) {
		if a.uuid != typ || a.read != nil || !bytes.Equal(a.value, value) {
			continue
		}
		if len(response)+4 > s.mtu {
			break
		}
		groupEnd := a.handle
		if a.typ == attributeTypeService {
			groupEnd = a.endHandle
		}
		response = binary.LittleEndian.AppendUint16(response, a.handle)
		response = binary.LittleEndian.AppendUint16(response, groupEnd)
	}
	if len(response) == 1 {
		return errorResponse(opFindByTypeReq, start, ErrAttributeNotFound)
	}
	return response
}

func (s *session) handleReadByTypeReq(pdu []byte) []byte {
	if len(pdu) != 7 && len(pdu) != 21 {
		return errorResponse(opReadByTypeReq, 0, ErrInvalidPDU)
	}
	start, end, rsp := handleRange(opReadByTypeReq, pdu)
	if rsp != nil {
		return rsp
	}
	typ, err := bridge.UUIDFromWire(pdu[5:])
	if err != nil {
		return errorResponse(opReadByTypeReq, start, ErrInvalidPDU)
	}

	maxValue := s.mtu - 4
	if maxValue > 253 {
		maxValue = 253
	}
	response := make([]byte, 2, s.mtu)
	response[0] = opReadByTypeResponse
	for _, a := range s.db.inRange(start, end) {
		if a.uuid != typ {
			continue
		}
		if !a.readable() {
			if len(response) == 2 {
				return errorResponse(opReadByTypeReq, a.handle, ErrReadNotPermitted)
			}
			break
		}
		value := a.readValue()
		if len(value) > maxValue {
			value = value[:maxValue]
		}
		length := 2 + len(value)
		if response[1] == 0 {
			response[1] = byte(length)
		} else if response[1] != byte(length) || len(response)+length > s.mtu {
			break
		}
		response = binary.LittleEndian.AppendUint16(response, a.handle)
		response = append(response, value...)
	}
	if len(response) == 2 {
		return errorResponse(opReadByTypeReq, start, ErrAttributeNotFound)
	}
	return response
}

func (s *session) handleReadByGroupReq(pdu []byte) []byte {
	if len(pdu) != 7 && len(pdu) != 21 {
		return errorResponse(opReadByGroupReq, 0, ErrInvalidPDU)
	}
	start, end, rsp := handleRange(opReadByGroupReq, pdu)
	if rsp != nil {
		return rsp
	}
	typ, err := bridge.UUIDFromWire(pdu[5:])
	if err != nil {
		return errorResponse(opReadByGroupReq, start, ErrInvalidPDU)
	}
	if typ != bridge.New16BitUUID(uuidPrimaryService) {
		return errorResponse(opReadByGroupReq, start, ErrUnsupportedGroupType)
	}

	response := make([]byte, 2, s.mtu)
	response[0] = opReadByGroupResponse
	for _, a := range s.db.inRange(start, end) {
		if a.typ != attributeTypeService {
			continue
		}
		length := 4 + len(a.value)
		if response[1] == 0 {
			response[1] = byte(length)
		} else if response[1] != byte(length) || len(response)+length > s.mtu {
			// change of UUID size, or full
			break
		}
		response = binary.LittleEndian.AppendUint16(response, a.handle)
		response = binary.LittleEndian.AppendUint16(response, a.endHandle)
		response = append(response, a.value...)
	}
	if len(response) == 2 {
		return errorResponse(opReadByGroupReq, start, ErrAttributeNotFound)
	}
	return response
}

// readAttribute looks up a readable attribute and returns its value.
func (s *session) readAttribute(op byte, handle uint16) ([]byte, []byte) {
	a := s.db.find(handle)
	if a == nil {
		return nil, errorResponse(op, handle, ErrInvalidHandle)
	}
	if !a.readable() {
		return nil, errorResponse(op, handle, ErrReadNotPermitted)
	}
	return a.readValue(), nil
}

func (s *session) handleReadReq(pdu []byte) []byte {
	if len(pdu) != 3 {
		return errorResponse(opReadReq, 0, ErrInvalidPDU)
	}
	handle := binary.LittleEndian.Uint16(pdu[1:])
	value, rsp := s.readAttribute(opReadReq, handle)
	if rsp != nil {
		return rsp
	}
	if len(value) > s.mtu-1 {
		value = value[:s.mtu-1]
	}
	return append([]byte{opReadResponse}, value...)
}

func (s *session) handleReadBlobReq(pdu []byte) []byte {
	if len(pdu) != 5 {
		return errorResponse(opReadBlobReq, 0, ErrInvalidPDU)
	}
	handle := binary.LittleEndian.Uint16(pdu[1:])
	offset := int(binary.LittleEndian.Uint16(pdu[3:]))
	value, rsp := s.readAttribute(opReadBlobReq, handle)
	if rsp != nil {
		return rsp
	}
	if offset > len(value) {
		return errorResponse(opReadBlobReq, handle, ErrInvalidOffset)
	}
	value = value[offset:]
	if len(value) > s.mtu-1 {
		value = value[:s.mtu-1]
	}
	return append([]byte{opReadBlobResponse}, value...)
}

// handleWrite serves both Write Request and Write Command. Errors are only
// reported for requests.
func (s *session) handleWrite(pdu []byte, request bool) []byte {
	op := pdu[0]
	fail := func(handle uint16, code ErrorCode) []byte {
		if !request {
			s.log.WithFields(logrus.Fields{
				"handle": handle,
				"err":    code.Error(),
			}).Debug("att: write command dropped")
			return nil
		}
		return errorResponse(op, handle, code)
	}

	if len(pdu) < 3 {
		return fail(0, ErrInvalidPDU)
	}
	handle := binary.LittleEndian.Uint16(pdu[1:])
	a := s.db.find(handle)
	if a == nil {
		return fail(handle, ErrInvalidHandle)
	}
	permitted := a.permissions.Write()
	if !request {
		permitted = permitted || a.permissions.WriteWithoutResponse()
	}
	if a.typ != attributeTypeCharacteristicValue || a.write == nil || !permitted {
		return fail(handle, ErrWriteNotPermitted)
	}
	value := pdu[3:]
	if len(value) > maxAttributeValue {
		return fail(handle, ErrInvalidAttrValueLength)
	}

	a.write(value, len(value))
	if !request {
		return nil
	}
	return []byte{opWriteResponse}
}
