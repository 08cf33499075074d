package tasks

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nodegate/internal/config"
	"nodegate/internal/logging"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "nodegate-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	if err := logging.InitLogger(&logging.Config{
		File:       filepath.Join(dir, "test.log"),
		MaxSize:    10,
		MaxBackups: 1,
		MaxAge:     1,
	}); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

// writeSelfSignedCert writes a certificate expiring after the given
// duration and returns its path.
func writeSelfSignedCert(t *testing.T, validFor time.Duration) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "node.example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(validFor),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}

	path := filepath.Join(t.TempDir(), "fullchain.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write certificate: %v", err)
	}
	return path
}

func TestCertMonitorCheck(t *testing.T) {
	tests := []struct {
		name     string
		validFor time.Duration
	}{
		{"healthy certificate", 90 * 24 * time.Hour},
		{"expiring soon", 5 * 24 * time.Hour},
		{"already expired", -time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm := NewCertMonitor(&config.Config{CertFile: writeSelfSignedCert(t, tt.validFor)})
			if err := cm.check(); err != nil {
				t.Errorf("check failed: %v", err)
			}
		})
	}
}

func TestCertMonitorCheckMissingFile(t *testing.T) {
	cm := NewCertMonitor(&config.Config{CertFile: filepath.Join(t.TempDir(), "absent.pem")})
	if err := cm.check(); err == nil {
		t.Error("expected error for missing certificate")
	}
}

func TestCertMonitorCheckNotPEM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	cm := NewCertMonitor(&config.Config{CertFile: path})
	if err := cm.check(); err == nil {
		t.Error("expected error for non-PEM content")
	}
}

func TestCertMonitorStartStop(t *testing.T) {
	cm := NewCertMonitor(&config.Config{CertFile: writeSelfSignedCert(t, 90 * 24 * time.Hour)})
	cm.Start()
	cm.Stop()
}
