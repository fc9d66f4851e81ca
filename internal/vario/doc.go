// Package vario implements the OpenVario GATT protocol on top of a
// device.Transport.
//
// A Device discovers the peer's services, runs the identification handshake
// and exposes one typed service per protocol service:
//
//	d := vario.NewDevice(conn, vario.DefaultOptions(), logger)
//	if err := d.Initialize(ctx); err != nil {
//	    return err
//	}
//	alt, _ := d.Altimeter()
//	meters, err := alt.ReadAltitude(ctx, vario.MainAltitude)
//
// Each service shares the Proxy discovery layer: characteristics are listed
// once, and the semantic mapping is all-or-nothing. Notifications are
// delivered as Event values on the service's Events channel.
package vario
