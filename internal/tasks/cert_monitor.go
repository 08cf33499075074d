package tasks

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"sync"
	"time"

	"nodegate/internal/config"
	"nodegate/internal/logging"
)

// CertMonitor periodically inspects the configured certificate and
// warns as expiry approaches. Certificates are provisioned externally;
// this task only observes.
type CertMonitor struct {
	certFile string
	interval time.Duration
	warnAt   time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewCertMonitor creates a new certificate monitor task
func NewCertMonitor(cfg *config.Config) *CertMonitor {
	return &CertMonitor{
		certFile: cfg.CertFile,
		interval: 12 * time.Hour,
		warnAt:   21 * 24 * time.Hour,
		done:     make(chan struct{}),
	}
}

// Start begins the certificate monitor task in the background
func (cm *CertMonitor) Start() {
	cm.wg.Add(1)
	go cm.runPeriodically()
}

// Stop gracefully stops the certificate monitor task
func (cm *CertMonitor) Stop() {
	close(cm.done)
	cm.wg.Wait()
}

// runPeriodically runs the check at regular intervals
func (cm *CertMonitor) runPeriodically() {
	defer cm.wg.Done()
	logger := logging.GetGlobalLogger()

	logger.Info("Starting certificate monitor task")

	// Check once at startup, then on the ticker
	if err := cm.check(); err != nil {
		logger.Warn("Certificate check failed: %v", err)
	}

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := cm.check(); err != nil {
				logger.Warn("Certificate check failed: %v", err)
			}
		case <-cm.done:
			logger.Info("Certificate monitor task stopped")
			return
		}
	}
}

// check parses the certificate and logs its remaining lifetime
func (cm *CertMonitor) check() error {
	logger := logging.GetGlobalLogger()

	data, err := os.ReadFile(cm.certFile)
	if err != nil {
		return fmt.Errorf("failed to read certificate: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("no PEM block in %s", cm.certFile)
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	remaining := time.Until(cert.NotAfter)
	switch {
	case remaining <= 0:
		logger.Error("Certificate %s EXPIRED on %s", cm.certFile, cert.NotAfter.Format(time.RFC3339))
	case remaining < cm.warnAt:
		logger.Warn("Certificate %s expires in %d day(s)", cm.certFile, int(remaining.Hours()/24))
	default:
		logger.Debug("Certificate %s valid until %s", cm.certFile, cert.NotAfter.Format(time.RFC3339))
	}

	return nil
}
