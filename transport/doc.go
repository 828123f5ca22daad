// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport provides the listening socket and the non-blocking
// byte-stream transports handed to connections: a raw-descriptor TCP
// transport and a TLS decorator layered over it. The reactor and connection
// layers never see the difference; both expose try-read/try-write with
// would-block as a control-flow outcome.
package transport
