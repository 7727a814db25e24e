package server

import (
	"crypto/tls"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/tvdiscovery/internal/logging"
)

// NewTLSConfig loads a certificate and key for serving the feed over wss://
func NewTLSConfig(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	logging.Info("TLS configuration created from files",
		zap.String("cert", certPath),
		zap.String("key", keyPath),
	)

	return buildTLSConfig(cert), nil
}

// buildTLSConfig requires TLS 1.2 or newer and HTTP/1.1, which the
// WebSocket upgrade needs.
func buildTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		NextProtos:   []string{"http/1.1"},
	}
}

// GetTLSInfo returns human-readable information about the TLS configuration
func GetTLSInfo(config *tls.Config) map[string]interface{} {
	info := make(map[string]interface{})

	switch config.MinVersion {
	case tls.VersionTLS12:
		info["min_version"] = "TLS 1.2"
	case tls.VersionTLS13:
		info["min_version"] = "TLS 1.3"
	default:
		info["min_version"] = fmt.Sprintf("0x%04x", config.MinVersion)
	}

	info["certificates"] = len(config.Certificates)
	if len(config.Certificates) > 0 && config.Certificates[0].Leaf != nil {
		leaf := config.Certificates[0].Leaf
		info["subject"] = leaf.Subject.CommonName
		info["not_after"] = leaf.NotAfter
	}
	info["alpn"] = config.NextProtos

	return info
}
