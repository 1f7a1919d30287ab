package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"

	utls "github.com/refraction-networking/utls"
)

// Fingerprint names the TLS ClientHello a client presents.
type Fingerprint string

const (
	FingerprintChrome  Fingerprint = "chrome"
	FingerprintFirefox Fingerprint = "firefox"
	FingerprintSafari  Fingerprint = "safari"
	FingerprintGo      Fingerprint = "go"     // crypto/tls as is
	FingerprintRandom  Fingerprint = "random" // randomized uTLS hello
)

var helloIDs = map[Fingerprint]utls.ClientHelloID{
	FingerprintChrome:  utls.HelloChrome_Auto,
	FingerprintFirefox: utls.HelloFirefox_Auto,
	FingerprintSafari:  utls.HelloIOS_Auto,
	FingerprintRandom:  utls.HelloRandomizedALPN,
}

// Transport returns a RoundTripper presenting fp during TLS handshakes. The
// empty fingerprint means chrome, matching the browser engine.
func Transport(fp Fingerprint, insecure bool) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if fp == "" {
		fp = FingerprintChrome
	}
	if fp == FingerprintGo {
		if insecure {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		return transport, nil
	}

	helloID, ok := helloIDs[fp]
	if !ok {
		return nil, fmt.Errorf("unknown tls fingerprint %q", fp)
	}

	// http.Transport only speaks HTTP/1.1 over a custom DialTLSContext, so
	// the parroted hello must not offer h2.
	dial := transport.DialContext
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		uConn, err := client(tcpConn, host, helloID, insecure)
		if err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls %s hello: %w", fp, err)
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls %s handshake: %w", fp, err)
		}
		return uConn, nil
	}

	return transport, nil
}

func client(conn net.Conn, host string, id utls.ClientHelloID, insecure bool) (*utls.UConn, error) {
	cfg := &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: insecure,
		NextProtos:         []string{"http/1.1"},
	}

	// Randomized hellos take their ALPN list from the config.
	if id == utls.HelloRandomizedALPN {
		return utls.UClient(conn, cfg, id), nil
	}

	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		return nil, err
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, err
	}
	return uConn, nil
}
