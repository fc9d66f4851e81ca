package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/openvario/internal/device"
	"github.com/srg/openvario/internal/groutine"
	"github.com/srg/openvario/internal/ringchan"
)

// ErrScanInProgress is returned when Scan is called while another scan runs.
var ErrScanInProgress = errors.New("scan already in progress")

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// Scanner turns advertisements from a scanning device into discovery events
// and keeps the registry of devices currently in range.
type Scanner struct {
	dev      device.ScanningDevice
	events   *ringchan.RingChannel[device.DiscoveryEvent]
	registry *device.Registry
	lastSeen *hashmap.Map[string, time.Time]
	logger   *logrus.Logger

	// seenMu orders advertisement handling against the lost sweep so a
	// device is never reported lost right after it advertised.
	seenMu sync.Mutex

	mu      sync.Mutex
	status  device.DiscoveryStatus
	cancel  context.CancelFunc
	stopped bool
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration // 0 scans until the context ends or Stop is called
	DuplicateFilter bool
	ServiceUUIDs    []uuid.UUID
	AllowList       []string
	BlockList       []string
	LostAfter       time.Duration // 0 never reports devices as lost
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration: 10 * time.Second,
	}
}

// NewScanner creates a scanner on top of dev.
func NewScanner(dev device.ScanningDevice, logger *logrus.Logger) (*Scanner, error) {
	if dev == nil {
		return nil, fmt.Errorf("scanning device is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		dev:      dev,
		events:   ringchan.New[device.DiscoveryEvent](100),
		registry: device.NewRegistry(),
		lastSeen: hashmap.New[string, time.Time](),
		logger:   logger,
	}, nil
}

// Status reports the state of the current or last scan.
func (s *Scanner) Status() device.DiscoveryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Stop cancels the running scan, if any. The scan finishes with DiscoveryCanceled.
func (s *Scanner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.stopped = true
		s.cancel()
	}
}

func (s *Scanner) begin(ctx context.Context, opts *ScanOptions) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == device.DiscoveryInProgress {
		return nil, ErrScanInProgress
	}

	var scanCtx context.Context
	var cancel context.CancelFunc
	if opts.Duration > 0 {
		scanCtx, cancel = context.WithTimeout(ctx, opts.Duration)
	} else {
		scanCtx, cancel = context.WithCancel(ctx)
	}
	s.status = device.DiscoveryInProgress
	s.cancel = cancel
	s.stopped = false
	return scanCtx, nil
}

func (s *Scanner) finish(status device.DiscoveryStatus, err error) {
	s.mu.Lock()
	s.status = status
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	s.events.ForceSend(device.DiscoveryEvent{
		Type:   device.EventDiscoveryComplete,
		Status: status,
		Err:    err,
	})
}

// Scan performs BLE discovery with provided options and returns the devices
// in range when it ends. Events are published on Events while it runs.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) ([]device.Info, error) {
	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}

	scanCtx, err := s.begin(ctx, opts)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan...")
	progressCallback("Scanning")

	if opts.LostAfter > 0 {
		s.watchLost(scanCtx, opts.LostAfter)
	}

	err = s.dev.Scan(scanCtx, !opts.DuplicateFilter, func(adv device.Advertisement) {
		s.handleAdvertisement(adv, opts)
	})

	status := s.outcome(ctx, scanCtx, err)
	if status == device.DiscoveryFailed {
		s.logger.WithError(err).Error("BLE scan failed")
		s.finish(status, err)
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	s.finish(status, nil)

	s.logger.WithFields(logrus.Fields{
		"device_count": s.registry.Len(),
		"status":       status,
	}).Info("BLE scan completed")

	progressCallback("Processing results")
	return s.registry.List(), nil
}

func (s *Scanner) outcome(parent, scanCtx context.Context, err error) device.DiscoveryStatus {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()

	switch {
	case stopped || parent.Err() != nil:
		return device.DiscoveryCanceled
	case scanCtx.Err() != nil:
		return device.DiscoveryComplete
	case err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded):
		return device.DiscoveryFailed
	default:
		return device.DiscoveryComplete
	}
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(adv device.Advertisement, opts *ScanOptions) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	deviceID := adv.Addr()
	_, known := s.registry.Get(deviceID)
	if !known && !shouldIncludeDevice(adv, opts) {
		return
	}
	s.lastSeen.Set(deviceID, time.Now())

	event := device.DiscoveryEvent{
		Type: device.EventDiscovered,
		Info: device.Info{
			ID:          deviceID,
			Name:        adv.LocalName(),
			Address:     deviceID,
			RSSI:        adv.RSSI(),
			TxPower:     adv.TxPowerLevel(),
			Connectable: adv.Connectable(),
			Services:    adv.Services(),
		},
	}
	if known {
		event.Type = device.EventUpdated
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  adv.LocalName(),
			"address": deviceID,
			"rssi":    adv.RSSI(),
		}).Info("Discovered new device")
	}

	s.registry.Apply(event)
	if info, ok := s.registry.Get(deviceID); ok {
		event.Info = info
	}
	s.events.ForceSend(event)
}

// watchLost reports devices that have not advertised for lostAfter.
func (s *Scanner) watchLost(ctx context.Context, lostAfter time.Duration) {
	interval := lostAfter / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	groutine.Go(ctx, "scanner-lost-watch", func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(ctx, now, lostAfter)
			}
		}
	})
}

func (s *Scanner) sweep(ctx context.Context, now time.Time, lostAfter time.Duration) {
	for _, info := range s.registry.List() {
		s.expire(ctx, info.ID, now, lostAfter)
	}
}

// expire reports id lost when it has not advertised for lostAfter. The
// timestamp is read under seenMu, so an advertisement handled concurrently
// either lands first and keeps the device or lands after the Lost event.
func (s *Scanner) expire(ctx context.Context, id string, now time.Time, lostAfter time.Duration) {
	s.seenMu.Lock()
	defer s.seenMu.Unlock()

	seen, ok := s.lastSeen.Get(id)
	if ok && now.Sub(seen) < lostAfter {
		return
	}
	info, known := s.registry.Get(id)
	if !known {
		return
	}
	s.lastSeen.Del(id)
	ev := device.DiscoveryEvent{Type: device.EventLost, Info: info}
	s.registry.Apply(ev)
	s.events.ForceSend(ev)
	s.logger.WithFields(logrus.Fields{
		"address":   info.Address,
		"goroutine": groutine.GetName(ctx),
	}).Info("Device lost")
}

// shouldIncludeDevice applies to allow/block/service filters
func shouldIncludeDevice(adv device.Advertisement, opts *ScanOptions) bool {
	addr := adv.Addr()

	if slices.ContainsFunc(opts.BlockList, func(b string) bool { return strings.EqualFold(b, addr) }) {
		return false
	}
	if len(opts.AllowList) > 0 &&
		!slices.ContainsFunc(opts.AllowList, func(a string) bool { return strings.EqualFold(a, addr) }) {
		return false
	}
	if len(opts.ServiceUUIDs) > 0 {
		advertised := adv.Services()
		return slices.ContainsFunc(opts.ServiceUUIDs, func(required uuid.UUID) bool {
			return slices.Contains(advertised, required)
		})
	}
	return true
}

// Devices returns a snapshot of the devices currently in range.
func (s *Scanner) Devices() []device.Info {
	return s.registry.List()
}

// Events return a read-only channel of discovery events
func (s *Scanner) Events() <-chan device.DiscoveryEvent {
	return s.events.C()
}
