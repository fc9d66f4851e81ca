// Package device is the transport-neutral GATT layer.
//
// It provides:
//   - Value, an immutable typed byte buffer exchanged with characteristics
//   - the attribute model (Service, Characteristic, Descriptor) with derived capabilities
//   - the Transport contract the protocol services are written against
//   - Connection, a Transport built on a platform backend Client
//   - Router, which maps raw notifications back to their characteristic listener
//   - discovery events and the Registry that folds them into a device table
package device
