//go:build darwin

// Implements the PeripheralManagerDelegate interface.
// CoreBluetooth communicates events asynchronously via callbacks. This file
// forwards them to the characteristic thunks and translates the state and
// service callbacks into channel operations.

package macbt

import (
	"github.com/JuulLabs-OSS/cbgo"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

// PMDelegate to handle callbacks from CoreBluetooth.
type PMDelegate struct {
	cbgo.PeripheralManagerDelegateBase

	chr     bridge.Characteristic
	log     logrus.FieldLogger
	central string // identifier of the tracked central

	ready chan struct{}
	added chan error
}

func newPMDelegate(chr bridge.Characteristic, log logrus.FieldLogger) *PMDelegate {
	return &PMDelegate{
		chr:   chr,
		log:   log,
		ready: make(chan struct{}, 1),
		added: make(chan error, 1),
	}
}

func (d *PMDelegate) PeripheralManagerDidUpdateState(pmgr cbgo.PeripheralManager) {
	state := pmgr.State()
	d.log.WithField("state", state).Debug("macbt: peripheral manager state")
	if state == cbgo.ManagerStatePoweredOn {
		select {
		case d.ready <- struct{}{}:
		default:
		}
	} else {
		d.chr.Conn.OnDisconnect()
	}
}

func (d *PMDelegate) DidAddService(pmgr cbgo.PeripheralManager, svc cbgo.Service, err error) {
	d.added <- err
}

func (d *PMDelegate) DidStartAdvertising(pmgr cbgo.PeripheralManager, err error) {
	if err != nil {
		d.log.WithError(err).Warn("macbt: advertising failed")
	}
}

// track reports a central to the connection handler. CoreBluetooth has no
// connection events for peripherals, so the first request of a new central
// counts as its connection.
func (d *PMDelegate) track(cent cbgo.Central) {
	id := cent.Identifier().String()
	mtu := uint16(cent.MaximumUpdateValueLength() + 3)
	if d.chr.Conn.Connected() && id == d.central {
		d.chr.Conn.Negotiate(mtu)
		return
	}
	d.central = id
	d.chr.Conn.OnConnect(bridge.MAC{}, mtu)
}

func (d *PMDelegate) DidReceiveReadRequest(pmgr cbgo.PeripheralManager, cbreq cbgo.ATTRequest) {
	d.track(cbreq.Central())

	value := d.chr.OnRead()
	offset := cbreq.Offset()
	if offset > len(value) {
		pmgr.RespondToRequest(cbreq, cbgo.ATTErrorInvalidOffset)
		return
	}
	cbreq.SetValue(value[offset:])
	pmgr.RespondToRequest(cbreq, cbgo.ATTErrorSuccess)
}

func (d *PMDelegate) DidReceiveWriteRequests(pmgr cbgo.PeripheralManager, cbreqs []cbgo.ATTRequest) {
	if len(cbreqs) == 0 {
		return
	}
	d.track(cbreqs[0].Central())
	offsets := make([]int, len(cbreqs))
	for i, req := range cbreqs {
		offsets[i] = req.Offset()
	}
	if res := writeResult(offsets); res != cbgo.ATTErrorSuccess {
		d.log.WithField("offsets", offsets).Debug("macbt: long write rejected")
		pmgr.RespondToRequest(cbreqs[0], res)
		return
	}
	for _, req := range cbreqs {
		value := req.Value()
		d.chr.OnWrite(value, len(value))
	}
	// A single response answers the whole batch.
	pmgr.RespondToRequest(cbreqs[0], cbgo.ATTErrorSuccess)
}

func (d *PMDelegate) CentralDidSubscribe(pmgr cbgo.PeripheralManager, cent cbgo.Central, cbchr cbgo.Characteristic) {
}

func (d *PMDelegate) CentralDidUnsubscribe(pmgr cbgo.PeripheralManager, cent cbgo.Central, chr cbgo.Characteristic) {
}

// writeResult rejects the batch when any request continues a long write:
// the consumer only ever sees whole values, as with the att backend.
func writeResult(offsets []int) cbgo.ATTError {
	for _, off := range offsets {
		if off != 0 {
			return cbgo.ATTErrorInvalidOffset
		}
	}
	return cbgo.ATTErrorSuccess
}
