package device_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var (
	svcUUID      = device.ShortUUID(0x180D)
	notifyUUID   = device.ShortUUID(0x2A37)
	indicateUUID = device.ShortUUID(0x2A38)
	readUUID     = device.ShortUUID(0x2A39)
	writeUUID    = device.ShortUUID(0x2A3A)
)

type ConnectionTestSuite struct {
	testutils.PeripheralSuite
}

func (suite *ConnectionTestSuite) SetupTest() {
	suite.WithPeripheral().
		WithService("180D").
		WithCharacteristic("2A37", "read,notify,indicate", []byte{0, 75}).
		WithCharacteristic("2A38", "indicate", nil).
		WithCharacteristic("2A39", "read", []byte{1}).
		WithCharacteristic("2A3A", "write-without-response", nil).
		WithService("180F").
		WithIncludedService("180D")

	suite.PeripheralSuite.SetupTest()
}

func (suite *ConnectionTestSuite) characteristics() map[uuid.UUID]*device.Characteristic {
	services, err := suite.Connection.DiscoverServices(suite.Context())
	suite.Require().NoError(err)
	suite.Require().Len(services, 2)

	chars, err := suite.Connection.DiscoverCharacteristics(suite.Context(), services[0])
	suite.Require().NoError(err)

	out := make(map[uuid.UUID]*device.Characteristic, len(chars))
	for _, c := range chars {
		out[c.UUID] = c
	}
	return out
}

func (suite *ConnectionTestSuite) TestDiscovery() {
	// GOAL: Verify discovery is uncached and exposes the attribute model
	//
	// TEST SCENARIO: Discover twice → backend queried twice → capabilities derived from properties

	suite.Run("services and characteristics", func() {
		chars := suite.characteristics()
		_ = suite.characteristics()

		suite.Assert().Equal(2, suite.Peripheral.Calls("discover-services"), "every discovery call MUST reach the backend")
		suite.Assert().Equal(2, suite.Peripheral.Calls("discover-characteristics"))

		suite.Assert().True(chars[notifyUUID].CanNotify(), "notify characteristic MUST report CanNotify")
		suite.Assert().True(chars[indicateUUID].CanNotify(), "indicate-only characteristic MUST report CanNotify")
		suite.Assert().True(chars[writeUUID].CanWrite(), "write-without-response MUST report CanWrite")
		suite.Assert().False(chars[readUUID].CanWrite())
	})

	suite.Run("included services", func() {
		services, err := suite.Connection.DiscoverServices(suite.Context())
		suite.Require().NoError(err)

		included, err := suite.Connection.DiscoverIncludedServices(suite.Context(), services[1])
		suite.Require().NoError(err)
		suite.Require().Len(included, 1)
		suite.Assert().Equal(svcUUID, included[0].UUID)
	})

	suite.Run("descriptors", func() {
		descs, err := suite.Connection.DiscoverDescriptors(suite.Context(), suite.characteristics()[notifyUUID])
		suite.Require().NoError(err)
		suite.Require().Len(descs, 1)
		suite.Assert().Equal(device.ShortUUID(0x2902), descs[0].UUID)
		suite.Assert().Equal(device.KindDescriptor, descs[0].Kind)
	})

	suite.Run("failure is a communication error", func() {
		suite.Peripheral.SetDiscoverError(errors.New("att: request not supported"))
		defer suite.Peripheral.SetDiscoverError(nil)

		_, err := suite.Connection.DiscoverServices(suite.Context())
		suite.Assert().ErrorIs(err, device.ErrCommunication)
	})
}

func (suite *ConnectionTestSuite) TestReadWrite() {
	// GOAL: Verify reads and writes pass bytes through unchanged
	//
	// TEST SCENARIO: Read → bytes returned as Value → write → peripheral stores bytes

	chars := suite.characteristics()

	v, err := suite.Connection.ReadValue(suite.Context(), chars[notifyUUID])
	suite.Require().NoError(err)
	suite.Assert().Equal([]byte{0, 75}, v.Bytes())

	err = suite.Connection.WriteValue(suite.Context(), chars[writeUUID], device.Uint16Value(0x0102))
	suite.Require().NoError(err)
	suite.Assert().Equal([]byte{0x02, 0x01}, suite.Peripheral.Value(writeUUID))

	_, err = suite.Connection.ReadValue(suite.Context(), chars[writeUUID])
	var commErr *device.CommunicationError
	suite.Require().ErrorAs(err, &commErr, "reading a write-only characteristic MUST fail with CommunicationError")
	suite.Assert().Equal("read", commErr.Op)
	suite.Assert().Equal(writeUUID, commErr.UUID)
}

func (suite *ConnectionTestSuite) TestRegisterNotification() {
	// GOAL: Verify CCCD mode selection and single-listener registration
	//
	// TEST SCENARIO: Register → notify preferred over indicate → duplicate rejected → unsupported rejected

	chars := suite.characteristics()
	noop := func(*device.Characteristic, device.Value) {}

	suite.Run("prefers notify", func() {
		suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], noop))

		subscribed, indicate := suite.Peripheral.Subscribed(notifyUUID)
		suite.Assert().True(subscribed)
		suite.Assert().False(indicate, "notify MUST be chosen when both are supported")
	})

	suite.Run("falls back to indicate", func() {
		suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[indicateUUID], noop))

		subscribed, indicate := suite.Peripheral.Subscribed(indicateUUID)
		suite.Assert().True(subscribed)
		suite.Assert().True(indicate)
	})

	suite.Run("rejects duplicate", func() {
		before := suite.Peripheral.Calls("subscribe")

		err := suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], noop)

		suite.Assert().ErrorIs(err, device.ErrAlreadyRegistered)
		suite.Assert().Equal(before, suite.Peripheral.Calls("subscribe"), "duplicate registration MUST NOT write the CCCD")
	})

	suite.Run("rejects characteristic without notify", func() {
		err := suite.Connection.RegisterNotification(suite.Context(), chars[readUUID], noop)

		suite.Assert().ErrorIs(err, device.ErrNotifyUnsupported)
		suite.Assert().ErrorIs(err, device.ErrUnsupported)
	})

	suite.Run("CCCD failure leaves nothing registered", func() {
		suite.Require().NoError(suite.Connection.UnregisterNotification(suite.Context(), chars[notifyUUID]))
		suite.Peripheral.SetSubscribeError(errors.New("att: write not permitted"))

		err := suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], noop)
		suite.Assert().ErrorIs(err, device.ErrCommunication)

		suite.Peripheral.SetSubscribeError(nil)
		suite.Assert().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], noop),
			"registration MUST succeed once the CCCD write works again")
	})
}

func (suite *ConnectionTestSuite) TestUnregisterNotification() {
	// GOAL: Verify teardown happens only for registered characteristics
	//
	// TEST SCENARIO: Unregister unknown → ErrNotRegistered → register → unregister → CCCD cleared

	chars := suite.characteristics()

	err := suite.Connection.UnregisterNotification(suite.Context(), chars[notifyUUID])
	suite.Assert().ErrorIs(err, device.ErrNotRegistered)
	suite.Assert().Equal(0, suite.Peripheral.Calls("unsubscribe"), "unregistered characteristic MUST NOT touch the CCCD")

	suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], func(*device.Characteristic, device.Value) {}))
	suite.Require().NoError(suite.Connection.UnregisterNotification(suite.Context(), chars[notifyUUID]))

	subscribed, _ := suite.Peripheral.Subscribed(notifyUUID)
	suite.Assert().False(subscribed)
	suite.Assert().Equal(0, suite.Connection.Router().Registered())
}

func (suite *ConnectionTestSuite) TestNotificationRouting() {
	// GOAL: Verify notifications reach the listener of their own characteristic only
	//
	// TEST SCENARIO: Two listeners → notify A → only A's listener runs → unknown handle dropped

	chars := suite.characteristics()

	var mu sync.Mutex
	got := map[uuid.UUID][][]byte{}
	listener := func(c *device.Characteristic, v device.Value) {
		mu.Lock()
		defer mu.Unlock()
		got[c.UUID] = append(got[c.UUID], v.Bytes())
	}

	suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], listener))
	suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[indicateUUID], listener))

	suite.Require().True(suite.Peripheral.Notify(notifyUUID, []byte{0, 80}))
	suite.Require().True(suite.Peripheral.NotifyHandle(device.Handle(9999), []byte{1}))

	mu.Lock()
	defer mu.Unlock()
	suite.Assert().Equal([][]byte{{0, 80}}, got[notifyUUID])
	suite.Assert().Empty(got[indicateUUID], "listener of another characteristic MUST NOT be invoked")
	suite.Assert().Len(got, 1, "unknown handle MUST be dropped")
}

func (suite *ConnectionTestSuite) TestListenerMayReenter() {
	// GOAL: Verify the registry lock is not held while a listener runs
	//
	// TEST SCENARIO: Listener unregisters itself → no deadlock → registration removed

	chars := suite.characteristics()
	done := make(chan error, 1)

	err := suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], func(c *device.Characteristic, _ device.Value) {
		done <- suite.Connection.UnregisterNotification(context.Background(), c)
	})
	suite.Require().NoError(err)

	suite.Peripheral.Notify(notifyUUID, []byte{1})

	suite.Assert().NoError(<-done)
	suite.Assert().Equal(0, suite.Connection.Router().Registered())
}

func (suite *ConnectionTestSuite) TestListenerPanicIsContained() {
	chars := suite.characteristics()

	suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], func(*device.Characteristic, device.Value) {
		panic("boom")
	}))

	suite.Assert().NotPanics(func() { suite.Peripheral.Notify(notifyUUID, []byte{1}) })
}

func (suite *ConnectionTestSuite) TestClose() {
	// GOAL: Verify Close tears down registrations and rejects further use
	//
	// TEST SCENARIO: Register → close → CCCD cleared, backend disconnected → read fails with ErrNotConnected

	chars := suite.characteristics()
	suite.Require().NoError(suite.Connection.RegisterNotification(suite.Context(), chars[notifyUUID], func(*device.Characteristic, device.Value) {}))

	suite.Require().NoError(suite.Connection.Close(suite.Context()))
	suite.Require().NoError(suite.Connection.Close(suite.Context()), "second Close MUST be a no-op")

	subscribed, _ := suite.Peripheral.Subscribed(notifyUUID)
	suite.Assert().False(subscribed)
	suite.Assert().True(suite.Peripheral.Disconnected())

	_, err := suite.Connection.ReadValue(suite.Context(), chars[readUUID])
	suite.Assert().ErrorIs(err, device.ErrNotConnected)
}

func TestConnectionTestSuite(t *testing.T) {
	suite.Run(t, new(ConnectionTestSuite))
}

func TestConnection_UnsubscribeUsesRegisteredMode(t *testing.T) {
	client := &testutils.MockClient{}
	conn := device.NewConnection(client, nil)
	char := device.NewCharacteristic(indicateUUID, "", 7, device.PropIndicate)

	client.On("Subscribe", mock.Anything, char, true, mock.Anything).Return(nil).Once()
	client.On("Unsubscribe", mock.Anything, char, true).Return(errors.New("link lost")).Once()

	ctx := context.Background()
	if err := conn.RegisterNotification(ctx, char, func(*device.Characteristic, device.Value) {}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := conn.UnregisterNotification(ctx, char)
	if !errors.Is(err, device.ErrCommunication) {
		t.Fatalf("unregister error = %v, want communication error", err)
	}
	if n := conn.Router().Registered(); n != 0 {
		t.Fatalf("listener MUST be detached even when the CCCD write fails, %d left", n)
	}
	client.AssertExpectations(t)
}

func TestConnection_CanceledContextIsNotWrapped(t *testing.T) {
	client := &testutils.MockClient{}
	conn := device.NewConnection(client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.On("DiscoverServices", ctx).Return(nil, context.Canceled)

	_, err := conn.DiscoverServices(ctx)
	if !errors.Is(err, context.Canceled) || errors.Is(err, device.ErrCommunication) {
		t.Fatalf("error = %v, want bare context.Canceled", err)
	}
}

func TestConnection_CloseWaitsForInFlightRegistration(t *testing.T) {
	// GOAL: Verify Close never leaves a CCCD enabled by a registration that raced with it
	//
	// TEST SCENARIO: Subscribe blocks mid-registration → Close starts → Close waits → Subscribe returns → Close disables the CCCD

	client := &testutils.MockClient{}
	conn := device.NewConnection(client, nil)
	char := device.NewCharacteristic(notifyUUID, "", 9, device.PropNotify)

	entered := make(chan struct{})
	release := make(chan struct{})
	client.On("Subscribe", mock.Anything, char, false, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(nil).Once()
	client.On("Unsubscribe", mock.Anything, char, false).Return(nil).Once()
	client.On("Disconnect").Return(nil).Once()

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(1)
	var regErr error
	go func() {
		defer wg.Done()
		regErr = conn.RegisterNotification(ctx, char, func(*device.Characteristic, device.Value) {})
	}()
	<-entered

	closed := make(chan error, 1)
	go func() { closed <- conn.Close(ctx) }()

	select {
	case err := <-closed:
		t.Fatalf("Close MUST wait for the in-flight registration, returned %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	if regErr != nil {
		t.Fatalf("register: %v", regErr)
	}

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("close: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close MUST finish once the registration completes")
	}

	if n := conn.Router().Registered(); n != 0 {
		t.Fatalf("no listener MUST survive Close, %d left", n)
	}
	client.AssertExpectations(t)
}
