package ssl

import (
	"crypto/x509"
	"fmt"
	"os"
)

// GetRootCAPool returns the host's root certificates, or an empty pool when they can't be read.
func GetRootCAPool() *x509.CertPool {
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		return x509.NewCertPool()
	}
	return pool
}

// AppendPEMFileToRootCAPool adds the certificates found in pemFileName to certPool.
// A nil certPool is replaced by an empty one.
func AppendPEMFileToRootCAPool(certPool *x509.CertPool, pemFileName string) (*x509.CertPool, error) {
	if certPool == nil {
		certPool = x509.NewCertPool()
	}
	if pemFileName == "" {
		return certPool, nil
	}

	pemCerts, err := os.ReadFile(pemFileName)
	if err != nil {
		return certPool, fmt.Errorf("failed to read file %s: %v", pemFileName, err)
	}
	if !certPool.AppendCertsFromPEM(pemCerts) {
		return certPool, fmt.Errorf("no certificates found in %s", pemFileName)
	}
	return certPool, nil
}
