// Package protocol provides a client for the MythTV backend control
// protocol on port 6543.
//
// Every exchange is one length-framed packet in each direction. Replies are
// decoded into the typed records of package models at the negotiated
// protocol version, so field layouts follow the backend automatically.
//
// # Basic Usage
//
//	client, err := protocol.Dial(ctx, "mythbackend:6543",
//		protocol.WithVersion(88),
//		protocol.WithRetryRejected(true),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	// List recordings, newest first
//	recordings, err := client.QueryRecordings(ctx, protocol.FilterDescend)
//
//	// Upcoming recordings and scheduler conflicts
//	pending, err := client.QueryPendingRecordings(ctx)
//
//	// Storage usage
//	summary, err := client.QueryFreeSpaceSummary(ctx)
//
// # Versions
//
// Dial offers one protocol version. A backend speaking another version
// answers REJECT and closes the connection; with WithRetryRejected the
// client reconnects once using the backend's version when it is supported.
// Commands that do not exist at the negotiated version fail with
// ErrCommandUnsupported without touching the network.
//
// # Failures
//
// Replies carry no request identifier. When a call fails mid-exchange, for
// example on a context deadline, the client closes its connection and every
// later call returns ErrClosed; dial again to continue.
package protocol
