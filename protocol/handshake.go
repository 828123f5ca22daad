// File: protocol/handshake.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Opening handshake per RFC 6455: parse the buffered HTTP upgrade request,
// extract Sec-WebSocket-Key and answer with a 101 carrying the accept token.
// Failures get a best-effort 426 before the socket is dropped.

package protocol

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
)

// HandshakeGUID is the fixed GUID appended to the client key before hashing.
const HandshakeGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

const handshakeResponseFormat = "HTTP/1.1 101 Switching Protocols\r\n" +
	"Upgrade: WebSocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Accept: %s\r\n\r\n"

const failedHandshakeResponse = "HTTP/1.1 426 Upgrade Required\r\n" +
	"Upgrade: WebSocket\r\n" +
	"Connection: Upgrade\r\n" +
	"Sec-WebSocket-Version: 13\r\n" +
	"Content-Type: text/plain\r\n\r\n" +
	"This service requires use of the WebSocket protocol\r\n"

// HeaderTerminator ends the HTTP header block of the upgrade request.
var HeaderTerminator = []byte("\r\n\r\n")

// AcceptToken computes the Sec-WebSocket-Accept value for a client key:
// SHA-1 over key+GUID, base64-encoded.
func AcceptToken(key string) string {
	h := sha1.New()
	h.Write([]byte(key + HandshakeGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// ParseUpgrade parses the accumulated request bytes (request line and
// headers; any body is irrelevant) and extracts the client key.
func ParseUpgrade(header []byte) (key string, err error) {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(header)))
	if err != nil {
		return "", fmt.Errorf("read upgrade request: %w", err)
	}
	key = req.Header.Get("Sec-WebSocket-Key")
	if key == "" {
		return "", fmt.Errorf("missing Sec-WebSocket-Key header")
	}
	return key, nil
}

// UpgradeResponse builds the complete 101 Switching Protocols response for
// the given client key.
func UpgradeResponse(key string) []byte {
	return []byte(fmt.Sprintf(handshakeResponseFormat, AcceptToken(key)))
}

// RejectionResponse is the 426 sent when the upgrade request is unusable.
func RejectionResponse() []byte {
	return []byte(failedHandshakeResponse)
}
