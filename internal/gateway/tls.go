package gateway

import (
	"crypto/tls"
	"fmt"
)

// ServerTLSConfig creates the TLS configuration for the HTTPS listener.
// The certificate is loaded per handshake so a renewed letsencrypt pair
// is picked up without a restart.
func ServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	// Fail fast on startup if the pair is unreadable or mismatched.
	if _, err := tls.LoadX509KeyPair(certFile, keyFile); err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
		},
		GetCertificate: func(info *tls.ClientHelloInfo) (*tls.Certificate, error) {
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load server certificate: %w", err)
			}
			return &cert, nil
		},
	}, nil
}
