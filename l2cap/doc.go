// Package l2cap opens the fixed LE L2CAP channel that carries ATT on Linux.
//
// The kernel hands every connection on channel 4 to the socket bound to it,
// so bluetoothd must not be serving GATT on the same controller (run it with
// --noplugin=* or stop it) for the att.Server to see the traffic.
package l2cap
