package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"testing"
	"time"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestLoadTLSConfigSystemRoots(t *testing.T) {
	tlsCfg, err := Config{UseTLS: true}.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if tlsCfg.RootCAs != nil || len(tlsCfg.Certificates) != 0 {
		t.Fatalf("expected system roots and no client cert")
	}
}

func TestLoadTLSConfigBadBundle(t *testing.T) {
	path := t.TempDir() + "/ca.pem"
	if err := os.WriteFile(path, []byte("not a cert"), 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	if _, err := (Config{UseTLS: true, CABundle: path}).LoadTLSConfig(); err == nil {
		t.Fatalf("expected error for empty bundle")
	}
	if _, err := NewPahoConnector(Config{UseTLS: true, CABundle: path}, nil); err == nil {
		t.Fatalf("expected connector to reject bad bundle")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{IP: "localhost", Port: 1883, User: "u", Password: "p"}, "id")
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
	if opts.ClientID != "id" {
		t.Fatalf("client id not set")
	}
	if opts.AutoReconnect || opts.ConnectRetry {
		t.Fatalf("library reconnect must be disabled")
	}
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://localhost:1883" {
		t.Fatalf("unexpected broker %v", opts.Servers)
	}
}

func TestNewClientOptionsDefaultCredentials(t *testing.T) {
	opts, err := NewClientOptions(Config{IP: "localhost", Port: 1883}, "id")
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "default_user" || opts.Password != "default_password" {
		t.Fatalf("default credentials not applied: %q/%q", opts.Username, opts.Password)
	}
}

func TestNewClientOptionsTLSScheme(t *testing.T) {
	opts, err := NewClientOptions(Config{IP: "broker", Port: 8883, UseTLS: true}, "id")
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Servers[0].Scheme != "ssl" {
		t.Fatalf("expected ssl scheme, got %s", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("tls config not set")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"defaults", Config{Port: 1883}, true},
		{"port zero", Config{Port: 0}, false},
		{"port high", Config{Port: 70000}, false},
		{"qos", Config{Port: 1883, QoS: 3}, false},
		{"cert without key", Config{Port: 1883, ClientCert: "c"}, false},
	}
	for _, c := range cases {
		err := c.cfg.Validate()
		if (err == nil) != c.ok {
			t.Errorf("%s: unexpected result %v", c.name, err)
		}
	}
}
