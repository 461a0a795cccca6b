package main

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"idregistry/crypto"
	"idregistry/rpc"
)

func TestGenerateKeyAddressAndSign(t *testing.T) {
	t.Setenv(keystorePassEnv, "correct horse")
	path := filepath.Join(t.TempDir(), "signer.keystore")

	code, stdout, stderr := runCLI("generate-key", "--keystore", path, "--light")
	if code != 0 {
		t.Fatalf("generate-key exit %d: %s", code, stderr)
	}
	address := strings.TrimSpace(stdout)
	if _, err := crypto.ParseAddress(address); err != nil {
		t.Fatalf("generate-key printed %q: %v", address, err)
	}
	if code, _, _ := runCLI("generate-key", "--keystore", path, "--light"); code != 1 {
		t.Fatalf("generate-key must refuse to overwrite an existing keystore")
	}

	code, stdout, stderr = runCLI("address", "--keystore", path)
	if code != 0 || strings.TrimSpace(stdout) != address {
		t.Fatalf("address = %q (exit %d): %s", stdout, code, stderr)
	}

	code, stdout, stderr = runCLI("sign", "--keystore", path, "--content", `["a.near"]`)
	if code != 0 {
		t.Fatalf("sign exit %d: %s", code, stderr)
	}
	content := `["a.near"]`
	if err := crypto.VerifyEVMSignature(address, &content, strings.TrimSpace(stdout)); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}

	code, stdout, stderr = runCLI("sign", "--keystore", path, "--delete")
	if code != 0 {
		t.Fatalf("sign --delete exit %d: %s", code, stderr)
	}
	if err := crypto.VerifyEVMSignature(address, nil, strings.TrimSpace(stdout)); err != nil {
		t.Fatalf("delete signature does not verify: %v", err)
	}
}

func TestSignFromFile(t *testing.T) {
	t.Setenv(keystorePassEnv, "pw")
	dir := t.TempDir()
	path := filepath.Join(dir, "signer.keystore")
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := crypto.SaveToKeystore(path, key, "pw", crypto.LightKeystore); err != nil {
		t.Fatalf("save: %v", err)
	}
	contentPath := filepath.Join(dir, "content.json")
	content := "{\"k\":\"v\"}\n"
	if err := os.WriteFile(contentPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write content: %v", err)
	}
	code, stdout, stderr := runCLI("sign", "--keystore", path, "--content-file", contentPath)
	if code != 0 {
		t.Fatalf("sign exit %d: %s", code, stderr)
	}
	if err := crypto.VerifyEVMSignature(key.PubKey().Address().Hex(), &content, strings.TrimSpace(stdout)); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}
}

func TestSignWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signer.keystore")
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := crypto.SaveToKeystore(path, key, "right", crypto.LightKeystore); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv(keystorePassEnv, "wrong")
	if code, _, _ := runCLI("sign", "--keystore", path, "--content", "x"); code != 1 {
		t.Fatalf("expected failure with wrong passphrase")
	}
}

func TestTokenCommand(t *testing.T) {
	code, stdout, stderr := runCLI("token", "--account", "acc1.near", "--secret", "s3cret", "--ttl", "5m")
	if code != 0 {
		t.Fatalf("token exit %d: %s", code, stderr)
	}
	token := strings.TrimSpace(stdout)
	auth := rpc.NewAuthenticator(rpc.AuthConfig{HMACSecret: "s3cret", Issuer: "registryd", ClockSkew: time.Second})
	req := newBearerRequest(token)
	caller, rpcErr := auth.Caller(req)
	if rpcErr != nil || caller != "acc1.near" {
		t.Fatalf("caller = %q, %v", caller, rpcErr)
	}

	if code, _, _ := runCLI("token", "--account", "acc1.near", "--secret", ""); code != 1 {
		t.Fatalf("token without secret must fail")
	}
}

func newBearerRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/rpc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestSignWithRawKey(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	keyHex := "0x" + hex.EncodeToString(key.Bytes())
	address := key.PubKey().Address().Hex()

	code, stdout, stderr := runCLI("address", "--key-hex", keyHex)
	if code != 0 || strings.TrimSpace(stdout) != address {
		t.Fatalf("address = %q (exit %d): %s", stdout, code, stderr)
	}
	code, stdout, stderr = runCLI("sign", "--key-hex", keyHex, "--content", "hello")
	if code != 0 {
		t.Fatalf("sign exit %d: %s", code, stderr)
	}
	content := "hello"
	if err := crypto.VerifyEVMSignature(address, &content, strings.TrimSpace(stdout)); err != nil {
		t.Fatalf("signature does not verify: %v", err)
	}

	if code, _, _ := runCLI("sign", "--key-hex", "zz", "--content", "hello"); code != 1 {
		t.Fatalf("expected failure for malformed key")
	}
	if code, _, _ := runCLI("sign", "--key-hex", keyHex, "--keystore", "k", "--content", "hello"); code != 1 {
		t.Fatalf("expected failure when both key sources are given")
	}
	if code, _, _ := runCLI("sign", "--content", "hello"); code != 1 {
		t.Fatalf("expected failure without a key")
	}
}
