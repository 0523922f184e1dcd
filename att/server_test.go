package att

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"io/ioutil"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bluepad/bridge"
)

var testPeer = bridge.MAC{0x66, 0x55, 0x44, 0x33, 0x22, 0x11}

type pipeConn struct {
	io.ReadWriteCloser
}

func (c pipeConn) RemoteAddr() bridge.MAC { return testPeer }

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.Out = ioutil.Discard
	return l
}

type testServer struct {
	srv    *Server
	bridge *bridge.Bridge
	client net.Conn
	done   chan error
	cancel context.CancelFunc

	mu     sync.Mutex
	writes [][]byte
}

func newTestServer(t *testing.T, value string, perm bridge.CharacteristicPermissions) *testServer {
	ts := &testServer{
		srv:  NewServer(WithDeviceName("BluePad"), WithLogger(quietLogger())),
		done: make(chan error, 1),
	}
	b, err := bridge.Setup(bridge.Config{
		Permissions: perm,
		Producer:    bridge.StaticValue(value),
		Consumer: bridge.ConsumerFunc(func(p []byte) {
			ts.mu.Lock()
			ts.writes = append(ts.writes, append([]byte{}, p...))
			ts.mu.Unlock()
		}),
		Logger: quietLogger(),
	}, ts.srv)
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	ts.bridge = b

	client, server := net.Pipe()
	ts.client = client
	ctx, cancel := context.WithCancel(context.Background())
	ts.cancel = cancel
	go func() {
		ts.done <- ts.srv.Serve(ctx, pipeConn{server})
	}()
	return ts
}

func (ts *testServer) close(t *testing.T) {
	ts.client.Close()
	select {
	case err := <-ts.done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("Serve did not return after disconnect")
	}
	ts.cancel()
}

func (ts *testServer) send(t *testing.T, req []byte) {
	ts.client.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := ts.client.Write(req); err != nil {
		t.Fatalf("write %x: %v", req, err)
	}
}

func (ts *testServer) exchange(t *testing.T, req []byte) []byte {
	ts.send(t, req)
	buf := make([]byte, 600)
	n, err := ts.client.Read(buf)
	if err != nil {
		t.Fatalf("read response to %x: %v", req, err)
	}
	return buf[:n]
}

func le16(v uint16) []byte {
	return binary.LittleEndian.AppendUint16(nil, v)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Handles of the table built with a device name.
const (
	gapServiceHandle = 1
	nameValueHandle  = 3
	serviceHandle    = 4
	declHandle       = 5
	valueHandle      = 6
)

func TestRegisterCharacteristic(t *testing.T) {
	ts := newTestServer(t, "x", 0)
	defer ts.close(t)

	if ts.bridge.Handle() != valueHandle {
		t.Errorf("expected value handle %d but got %d", valueHandle, ts.bridge.Handle())
	}
	_, err := ts.srv.RegisterCharacteristic(bridge.Characteristic{
		OnRead:  func() []byte { return nil },
		OnWrite: func([]byte, int) {},
		Conn:    bridge.NewConnectionTracker(quietLogger()),
	})
	if err != bridge.ErrAlreadyRegistered {
		t.Errorf("expected ErrAlreadyRegistered but got %v", err)
	}
	if _, err := NewServer().RegisterCharacteristic(bridge.Characteristic{}); err != ErrIncompleteCharacteristic {
		t.Errorf("expected ErrIncompleteCharacteristic but got %v", err)
	}
}

func TestServeNotRegistered(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	if err := NewServer().Serve(context.Background(), pipeConn{server}); err != ErrNotRegistered {
		t.Errorf("expected ErrNotRegistered but got %v", err)
	}
}

func TestDiscovery(t *testing.T) {
	ts := newTestServer(t, "hello", 0)
	defer ts.close(t)

	svc := bridge.DefaultServiceUUID.AppendWire(nil)
	chr := bridge.DefaultCharacteristicUUID.AppendWire(nil)

	tests := []struct {
		name string
		req  []byte
		rsp  []byte
	}{
		{
			"primary services, 16-bit",
			cat([]byte{opReadByGroupReq}, le16(1), le16(0xffff), le16(uuidPrimaryService)),
			cat([]byte{opReadByGroupResponse, 6}, le16(gapServiceHandle), le16(nameValueHandle), le16(uuidGAPService)),
		},
		{
			"primary services, 128-bit",
			cat([]byte{opReadByGroupReq}, le16(4), le16(0xffff), le16(uuidPrimaryService)),
			cat([]byte{opReadByGroupResponse, 20}, le16(serviceHandle), le16(valueHandle), svc),
		},
		{
			"primary services, past the end",
			cat([]byte{opReadByGroupReq}, le16(7), le16(0xffff), le16(uuidPrimaryService)),
			cat([]byte{opError, opReadByGroupReq}, le16(7), []byte{byte(ErrAttributeNotFound)}),
		},
		{
			"secondary services",
			cat([]byte{opReadByGroupReq}, le16(1), le16(0xffff), le16(0x2801)),
			cat([]byte{opError, opReadByGroupReq}, le16(1), []byte{byte(ErrUnsupportedGroupType)}),
		},
		{
			"service by UUID",
			cat([]byte{opFindByTypeReq}, le16(1), le16(0xffff), le16(uuidPrimaryService), svc),
			cat([]byte{opFindByTypeResponse}, le16(serviceHandle), le16(valueHandle)),
		},
		{
			"characteristics",
			cat([]byte{opReadByTypeReq}, le16(serviceHandle), le16(valueHandle), le16(uuidCharacteristic)),
			cat([]byte{opReadByTypeResponse, 21}, le16(declHandle), []byte{0x0e}, le16(valueHandle), chr),
		},
		{
			"value by type",
			cat([]byte{opReadByTypeReq}, le16(1), le16(0xffff), chr),
			cat([]byte{opReadByTypeResponse, 7}, le16(valueHandle), []byte("hello")),
		},
		{
			"descriptors",
			cat([]byte{opFindInfoReq}, le16(valueHandle), le16(0xffff)),
			cat([]byte{opFindInfoResponse, 2}, le16(valueHandle), chr),
		},
		{
			"invalid range",
			cat([]byte{opFindInfoReq}, le16(5), le16(4)),
			cat([]byte{opError, opFindInfoReq}, le16(5), []byte{byte(ErrInvalidHandle)}),
		},
		{
			"device name",
			cat([]byte{opReadReq}, le16(nameValueHandle)),
			cat([]byte{opReadResponse}, []byte("BluePad")),
		},
	}
	for _, tc := range tests {
		if rsp := ts.exchange(t, tc.req); !bytes.Equal(rsp, tc.rsp) {
			t.Errorf("%s: expected %x but got %x", tc.name, tc.rsp, rsp)
		}
	}
}

func TestReadTruncatedToMTU(t *testing.T) {
	value := "abcdefghijklmnopqrstuvwxyz0123"
	ts := newTestServer(t, value, 0)
	defer ts.close(t)

	rsp := ts.exchange(t, cat([]byte{opReadReq}, le16(valueHandle)))
	if want := cat([]byte{opReadResponse}, []byte(value[:22])); !bytes.Equal(rsp, want) {
		t.Errorf("expected %x but got %x", want, rsp)
	}

	rsp = ts.exchange(t, cat([]byte{opMTUReq}, le16(185)))
	if want := cat([]byte{opMTUResponse}, le16(defaultServerMaxMTU)); !bytes.Equal(rsp, want) {
		t.Errorf("expected %x but got %x", want, rsp)
	}
	if u := ts.bridge.Connection().CurrentUnitSize(); u != 185 {
		t.Errorf("expected unit size 185 but got %d", u)
	}
	if st := ts.bridge.Connection().State(); !st.Connected || st.Peer != testPeer {
		t.Errorf("unexpected connection state %+v", st)
	}

	rsp = ts.exchange(t, cat([]byte{opReadReq}, le16(valueHandle)))
	if want := cat([]byte{opReadResponse}, []byte(value)); !bytes.Equal(rsp, want) {
		t.Errorf("expected %x but got %x", want, rsp)
	}

	rsp = ts.exchange(t, cat([]byte{opReadBlobReq}, le16(valueHandle), le16(26)))
	if want := cat([]byte{opReadBlobResponse}, []byte("0123")); !bytes.Equal(rsp, want) {
		t.Errorf("expected %x but got %x", want, rsp)
	}

	rsp = ts.exchange(t, cat([]byte{opReadBlobReq}, le16(valueHandle), le16(31)))
	if want := cat([]byte{opError, opReadBlobReq}, le16(valueHandle), []byte{byte(ErrInvalidOffset)}); !bytes.Equal(rsp, want) {
		t.Errorf("expected %x but got %x", want, rsp)
	}
}

func TestMTUClamp(t *testing.T) {
	ts := newTestServer(t, strings.Repeat("z", 600), 0)
	defer ts.close(t)

	ts.exchange(t, cat([]byte{opMTUReq}, le16(1000)))
	if u := ts.bridge.Connection().CurrentUnitSize(); u != defaultServerMaxMTU {
		t.Errorf("expected unit size %d but got %d", defaultServerMaxMTU, u)
	}
	rsp := ts.exchange(t, cat([]byte{opReadReq}, le16(valueHandle)))
	if len(rsp) != defaultServerMaxMTU {
		t.Errorf("expected a %d byte response but got %d", defaultServerMaxMTU, len(rsp))
	}

	ts.exchange(t, cat([]byte{opMTUReq}, le16(10)))
	if u := ts.bridge.Connection().CurrentUnitSize(); u != bridge.DefaultUnitSize {
		t.Errorf("expected unit size %d but got %d", bridge.DefaultUnitSize, u)
	}
}

func TestWrite(t *testing.T) {
	ts := newTestServer(t, "", 0)
	defer ts.close(t)

	rsp := ts.exchange(t, cat([]byte{opWriteReq}, le16(valueHandle), []byte{1, 2, 3, 4, 5}))
	if !bytes.Equal(rsp, []byte{opWriteResponse}) {
		t.Errorf("expected write response but got %x", rsp)
	}

	ts.send(t, cat([]byte{opWriteCmd}, le16(valueHandle), []byte("hi")))
	ts.send(t, cat([]byte{opWriteCmd}, le16(declHandle), []byte("no")))

	rsp = ts.exchange(t, cat([]byte{opWriteReq}, le16(valueHandle)))
	if !bytes.Equal(rsp, []byte{opWriteResponse}) {
		t.Errorf("expected write response but got %x", rsp)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	want := [][]byte{{1, 2, 3, 4, 5}, []byte("hi"), {}}
	if len(ts.writes) != len(want) {
		t.Fatalf("expected %d writes but got %d: %x", len(want), len(ts.writes), ts.writes)
	}
	for i := range want {
		if !bytes.Equal(ts.writes[i], want[i]) {
			t.Errorf("write %d: expected %x but got %x", i, want[i], ts.writes[i])
		}
	}
}

func TestWritePermissions(t *testing.T) {
	ts := newTestServer(t, "ro", bridge.CharacteristicReadPermission|bridge.CharacteristicWriteWithoutResponsePermission)
	defer ts.close(t)

	rsp := ts.exchange(t, cat([]byte{opWriteReq}, le16(valueHandle), []byte{1}))
	if want := cat([]byte{opError, opWriteReq}, le16(valueHandle), []byte{byte(ErrWriteNotPermitted)}); !bytes.Equal(rsp, want) {
		t.Errorf("expected %x but got %x", want, rsp)
	}

	// Allowed as a command.
	ts.send(t, cat([]byte{opWriteCmd}, le16(valueHandle), []byte{2}))
	ts.exchange(t, cat([]byte{opReadReq}, le16(valueHandle)))
	ts.mu.Lock()
	n := len(ts.writes)
	ts.mu.Unlock()
	if n != 1 {
		t.Errorf("expected 1 write but got %d", n)
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t, "x", bridge.CharacteristicWritePermission)
	defer ts.close(t)

	tests := []struct {
		name string
		req  []byte
		rsp  []byte
	}{
		{
			"unknown handle",
			cat([]byte{opReadReq}, le16(0x99)),
			cat([]byte{opError, opReadReq}, le16(0x99), []byte{byte(ErrInvalidHandle)}),
		},
		{
			"write only",
			cat([]byte{opReadReq}, le16(valueHandle)),
			cat([]byte{opError, opReadReq}, le16(valueHandle), []byte{byte(ErrReadNotPermitted)}),
		},
		{
			"write declaration",
			cat([]byte{opWriteReq}, le16(declHandle), []byte{1}),
			cat([]byte{opError, opWriteReq}, le16(declHandle), []byte{byte(ErrWriteNotPermitted)}),
		},
		{
			"short read",
			[]byte{opReadReq, 1},
			cat([]byte{opError, opReadReq}, le16(0), []byte{byte(ErrInvalidPDU)}),
		},
		{
			"prepare write",
			cat([]byte{opPrepWriteReq}, le16(valueHandle), le16(0), []byte{1}),
			cat([]byte{opError, opPrepWriteReq}, le16(0), []byte{byte(ErrRequestNotSupported)}),
		},
		{
			"read multiple",
			cat([]byte{opReadMultiReq}, le16(3), le16(6)),
			cat([]byte{opError, opReadMultiReq}, le16(0), []byte{byte(ErrRequestNotSupported)}),
		},
	}
	for _, tc := range tests {
		if rsp := ts.exchange(t, tc.req); !bytes.Equal(rsp, tc.rsp) {
			t.Errorf("%s: expected %x but got %x", tc.name, tc.rsp, rsp)
		}
	}
}

func TestDisconnectResetsTracker(t *testing.T) {
	ts := newTestServer(t, "x", 0)
	ts.exchange(t, cat([]byte{opMTUReq}, le16(100)))
	ts.close(t)
	if st := ts.bridge.Connection().State(); st.Connected || st.UnitSize != bridge.DefaultUnitSize {
		t.Errorf("unexpected state after disconnect %+v", st)
	}
}

func TestServeCancel(t *testing.T) {
	ts := newTestServer(t, "x", 0)
	defer ts.client.Close()
	ts.exchange(t, cat([]byte{opReadReq}, le16(valueHandle)))
	ts.cancel()
	select {
	case err := <-ts.done:
		if errors.Cause(err) != context.Canceled {
			t.Errorf("expected context.Canceled but got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

type chanListener struct {
	conns  chan Conn
	closed chan struct{}
	once   sync.Once
}

func (l *chanListener) Accept() (Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, ErrClosed
	}
}

func (l *chanListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func TestServeListener(t *testing.T) {
	srv := NewServer(WithLogger(quietLogger()))
	b, err := bridge.Setup(bridge.Config{
		Producer: bridge.StaticValue("v"),
		Consumer: bridge.ConsumerFunc(func([]byte) {}),
		Logger:   quietLogger(),
	}, srv)
	if err != nil {
		t.Fatal(err)
	}
	// Without a device name the table starts with the bridged service.
	if b.Handle() != 3 {
		t.Errorf("expected value handle 3 but got %d", b.Handle())
	}

	l := &chanListener{conns: make(chan Conn, 2), closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ServeListener(ctx, l) }()

	for i := 0; i < 2; i++ {
		client, server := net.Pipe()
		l.conns <- pipeConn{server}
		client.SetDeadline(time.Now().Add(2 * time.Second))
		client.Write(cat([]byte{opReadReq}, le16(3)))
		buf := make([]byte, 32)
		n, err := client.Read(buf)
		if err != nil || !bytes.Equal(buf[:n], []byte{opReadResponse, 'v'}) {
			t.Errorf("connection %d: unexpected response %x (%v)", i, buf[:n], err)
		}
		client.Close()
	}

	cancel()
	select {
	case err := <-done:
		if errors.Cause(err) != context.Canceled {
			t.Errorf("expected context.Canceled but got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ServeListener did not return after cancel")
	}
}
