package testutils

import (
	"context"

	"github.com/srg/openvario/internal/device"
	"github.com/stretchr/testify/mock"
)

// MockClient is a testify mock of device.Client for tests that need to
// assert exact backend calls rather than scripted peripheral behavior.
type MockClient struct {
	mock.Mock
}

var _ device.Client = (*MockClient)(nil)

func (m *MockClient) DiscoverServices(ctx context.Context) ([]*device.Service, error) {
	args := m.Called(ctx)
	services, _ := args.Get(0).([]*device.Service)
	return services, args.Error(1)
}

func (m *MockClient) DiscoverIncludedServices(ctx context.Context, svc *device.Service) ([]*device.Service, error) {
	args := m.Called(ctx, svc)
	services, _ := args.Get(0).([]*device.Service)
	return services, args.Error(1)
}

func (m *MockClient) DiscoverCharacteristics(ctx context.Context, svc *device.Service) ([]*device.Characteristic, error) {
	args := m.Called(ctx, svc)
	chars, _ := args.Get(0).([]*device.Characteristic)
	return chars, args.Error(1)
}

func (m *MockClient) DiscoverDescriptors(ctx context.Context, char *device.Characteristic) ([]*device.Descriptor, error) {
	args := m.Called(ctx, char)
	descs, _ := args.Get(0).([]*device.Descriptor)
	return descs, args.Error(1)
}

func (m *MockClient) Read(ctx context.Context, char *device.Characteristic) ([]byte, error) {
	args := m.Called(ctx, char)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockClient) Write(ctx context.Context, char *device.Characteristic, data []byte) error {
	return m.Called(ctx, char, data).Error(0)
}

func (m *MockClient) Subscribe(ctx context.Context, char *device.Characteristic, indicate bool, h device.NotificationHandler) error {
	return m.Called(ctx, char, indicate, h).Error(0)
}

func (m *MockClient) Unsubscribe(ctx context.Context, char *device.Characteristic, indicate bool) error {
	return m.Called(ctx, char, indicate).Error(0)
}

func (m *MockClient) Disconnect() error {
	return m.Called().Error(0)
}
