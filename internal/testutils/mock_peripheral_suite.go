package testutils

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/stretchr/testify/suite"
)

// PeripheralSuite is a reusable testify suite that wires a scripted
// Peripheral into a device.Connection before each test.
//
// Basic usage:
//
//	type AltimeterSuite struct {
//	    testutils.PeripheralSuite
//	}
//
//	func (s *AltimeterSuite) SetupTest() {
//	    s.WithPeripheral().
//	        WithService("516c5737-8250-493b-bb95-b2a16f65110e").
//	        WithCharacteristic("f033de08-eda3-46a2-9918-19e123297152", "read,write,notify", []byte{0xDC, 0x05})
//
//	    s.PeripheralSuite.SetupTest() // Call parent last to apply configuration
//	}
type PeripheralSuite struct {
	suite.Suite

	Helper *TestHelper
	Logger *logrus.Logger

	TestTimeout time.Duration

	PeripheralBuilder *PeripheralBuilder
	Peripheral        *Peripheral
	Connection        *device.Connection
}

// SetupSuite initializes the shared helper and logger.
func (s *PeripheralSuite) SetupSuite() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.TestTimeout = 5 * time.Second
}

// SetupTest builds the configured peripheral (an empty one when nothing was
// configured) and opens a connection over it.
func (s *PeripheralSuite) SetupTest() {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralBuilder()
	}
	s.Peripheral = s.PeripheralBuilder.Build()
	s.Connection = device.NewConnection(s.Peripheral, s.Logger)
}

// TearDownTest closes the connection and resets the builder.
func (s *PeripheralSuite) TearDownTest() {
	if s.Connection != nil {
		_ = s.Connection.Close(context.Background())
	}
	s.Connection = nil
	s.Peripheral = nil
	s.PeripheralBuilder = nil
}

// WithPeripheral returns the builder for configuring the next test's peripheral.
func (s *PeripheralSuite) WithPeripheral() *PeripheralBuilder {
	if s.PeripheralBuilder == nil {
		s.PeripheralBuilder = NewPeripheralBuilder()
	}
	return s.PeripheralBuilder
}

// Context returns a context bounded by the suite's test timeout.
func (s *PeripheralSuite) Context() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), s.TestTimeout)
	s.T().Cleanup(cancel)
	return ctx
}
