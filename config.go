package bridge

import "github.com/sirupsen/logrus"

// DefaultName is the local name advertised when Config.Name is empty. The
// web client filters scan results on it.
const DefaultName = "BluePad"

var (
	// DefaultServiceUUID is the service the web client connects to.
	DefaultServiceUUID = MustParseUUID("4fafc201-1fb5-459e-8fcc-c5c9c331914b")

	// DefaultCharacteristicUUID is the characteristic the web client reads
	// and writes.
	DefaultCharacteristicUUID = MustParseUUID("beb5483e-36e1-4688-b7f5-ea07361b26a8")
)

// Config is the state registered once at start-up.
type Config struct {
	// Name is the local name a stack advertises.
	Name string

	Service        UUID
	Characteristic UUID
	Permissions    CharacteristicPermissions

	Producer ValueProducer
	Consumer ValueConsumer

	Truncation Truncation

	// Logger defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger
}

// DefaultConfig returns a Config with every field but the producer and the
// consumer filled in.
func DefaultConfig() Config {
	return Config{
		Name:           DefaultName,
		Service:        DefaultServiceUUID,
		Characteristic: DefaultCharacteristicUUID,
		Permissions:    DefaultPermissions,
		Truncation:     TruncateBytes,
	}
}

// withDefaults fills the zero fields of c from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Service == (UUID{}) {
		c.Service = def.Service
	}
	if c.Characteristic == (UUID{}) {
		c.Characteristic = def.Characteristic
	}
	if c.Permissions == 0 {
		c.Permissions = def.Permissions
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

// Validate reports the first problem that would make Setup fail.
func (c Config) Validate() error {
	if c.Producer == nil {
		return ErrNoProducer
	}
	if c.Consumer == nil {
		return ErrNoConsumer
	}
	if c.Permissions != 0 && !c.Permissions.Read() && !c.Permissions.Write() && !c.Permissions.WriteWithoutResponse() {
		return ErrNoPermissions
	}
	if c.Truncation > TruncateRunes {
		return ErrInvalidTruncation
	}
	return nil
}
