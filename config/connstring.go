// Package config holds the command line configuration: connection strings
// and the profiles that name them.
package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"

	"github.com/bluepad/bridge"
)

// ErrInvalidConnString is the cause of every ParseConnString error.
var ErrInvalidConnString = errors.New("invalid connstring")

// Backends.
const (
	BackendL2CAP = "l2cap"
	BackendBlueZ = "bluez"
	BackendMac   = "macbt"
)

// ConnConfig is a parsed connection string. Only the fields that were
// present are applied to a bridge.Config.
type ConnConfig struct {
	Backend string
	HCI     int
	Addr    bridge.MAC
	MTU     uint16

	Name           string
	Service        bridge.UUID
	Characteristic bridge.UUID
	Permissions    bridge.CharacteristicPermissions
	Truncation     bridge.Truncation

	set map[string]bool
}

func einvalConnString(f string, args ...interface{}) error {
	return errors.Wrap(ErrInvalidConnString, fmt.Sprintf(f, args...))
}

// decimal strips leading zeros so cast does not read the number as octal.
func decimal(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		return "0"
	}
	return t
}

// ParseConnString parses comma separated key=value pairs, for example
// "backend=l2cap,hci=1,mtu=185,name=BluePad". An empty string is valid.
func ParseConnString(cs string) (*ConnConfig, error) {
	cc := &ConnConfig{set: map[string]bool{}}
	if strings.TrimSpace(cs) == "" {
		return cc, nil
	}

	for _, p := range strings.Split(cs, ",") {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, einvalConnString("expected comma-separated "+
				"key=value pairs; no '=' in: %s", p)
		}

		k := strings.TrimSpace(kv[0])
		v := strings.TrimSpace(kv[1])

		var err error
		switch k {
		case "backend":
			switch v {
			case BackendL2CAP, BackendBlueZ, BackendMac:
				cc.Backend = v
			default:
				return nil, einvalConnString("unknown backend: %s", v)
			}
		case "hci":
			cc.HCI, err = cast.ToIntE(decimal(strings.TrimPrefix(v, "hci")))
			if err != nil || cc.HCI < 0 {
				return nil, einvalConnString("invalid hci: %s", v)
			}
		case "addr":
			cc.Addr, err = bridge.ParseMAC(v)
			if err != nil {
				return nil, einvalConnString("invalid addr: %s", v)
			}
		case "mtu":
			cc.MTU, err = cast.ToUint16E(v)
			if err != nil || cc.MTU < bridge.DefaultUnitSize || cc.MTU > bridge.MaxUnitSize {
				return nil, einvalConnString("invalid mtu: %s", v)
			}
		case "name":
			cc.Name = v
		case "service":
			cc.Service, err = bridge.ParseUUID(v)
			if err != nil {
				return nil, einvalConnString("invalid service: %s", v)
			}
		case "characteristic":
			cc.Characteristic, err = bridge.ParseUUID(v)
			if err != nil {
				return nil, einvalConnString("invalid characteristic: %s", v)
			}
		case "perm":
			cc.Permissions, err = bridge.ParsePermissions(v)
			if err != nil {
				return nil, einvalConnString("invalid perm: %s", v)
			}
		case "truncate":
			cc.Truncation, err = bridge.ParseTruncation(v)
			if err != nil {
				return nil, einvalConnString("invalid truncate: %s", v)
			}
		default:
			return nil, einvalConnString("unrecognized key: %s", k)
		}
		cc.set[k] = true
	}

	return cc, nil
}

// Has reports whether key was present in the connection string.
func (cc *ConnConfig) Has(key string) bool {
	return cc.set[key]
}

// AdapterID returns the BlueZ name of the HCI index, for example "hci0".
func (cc *ConnConfig) AdapterID() string {
	return fmt.Sprintf("hci%d", cc.HCI)
}

// Apply copies the bridge settings that were present onto cfg.
func (cc *ConnConfig) Apply(cfg *bridge.Config) {
	if cc.Has("name") {
		cfg.Name = cc.Name
	}
	if cc.Has("service") {
		cfg.Service = cc.Service
	}
	if cc.Has("characteristic") {
		cfg.Characteristic = cc.Characteristic
	}
	if cc.Has("perm") {
		cfg.Permissions = cc.Permissions
	}
	if cc.Has("truncate") {
		cfg.Truncation = cc.Truncation
	}
}

// String formats cc back into a connection string.
func (cc *ConnConfig) String() string {
	var parts []string
	add := func(k, v string) {
		if cc.Has(k) {
			parts = append(parts, k+"="+v)
		}
	}
	add("backend", cc.Backend)
	add("hci", cast.ToString(cc.HCI))
	add("addr", cc.Addr.String())
	add("mtu", cast.ToString(cc.MTU))
	add("name", cc.Name)
	add("service", cc.Service.String())
	add("characteristic", cc.Characteristic.String())
	add("perm", cc.Permissions.String())
	add("truncate", cc.Truncation.String())
	return strings.Join(parts, ",")
}
