package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"idregistry/cmd/internal/passphrase"
	"idregistry/config"
	"idregistry/crypto"
	"idregistry/native/registry"
	"idregistry/rpc"
)

var newPassphraseSource = func() *passphrase.Source {
	return passphrase.NewSource(keystorePassEnv)
}

func runGenerateKey(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("generate-key", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var path string
	var light bool
	fs.StringVar(&path, "keystore", "signer.keystore", "path of the keystore file to create")
	fs.BoolVar(&light, "light", false, "use light scrypt parameters (development keys only)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(stderr, "Error: %s already exists\n", path)
		return 1
	}
	pass, err := newPassphraseSource().WithConfirmation().Get()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error generating key: %v\n", err)
		return 1
	}
	strength := crypto.StandardKeystore
	if light {
		strength = crypto.LightKeystore
	}
	if err := crypto.SaveToKeystore(path, key, pass, strength); err != nil {
		fmt.Fprintf(stderr, "Error saving keystore: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().Hex())
	return 0
}

// signerFlags selects the signing key: an encrypted keystore or a raw hex
// private key.
type signerFlags struct {
	keystore string
	keyHex   string
}

func (s *signerFlags) register(fs *flag.FlagSet, keystoreHelp string) {
	fs.StringVar(&s.keystore, "keystore", "", keystoreHelp)
	fs.StringVar(&s.keyHex, "key-hex", "", "raw hex private key (instead of --keystore)")
}

func (s *signerFlags) provided() bool {
	return strings.TrimSpace(s.keystore) != "" || strings.TrimSpace(s.keyHex) != ""
}

func (s *signerFlags) load() (*crypto.PrivateKey, error) {
	path := strings.TrimSpace(s.keystore)
	keyHex := strings.TrimSpace(s.keyHex)
	switch {
	case path != "" && keyHex != "":
		return nil, fmt.Errorf("--keystore and --key-hex are mutually exclusive")
	case keyHex != "":
		key, err := crypto.PrivateKeyFromHex(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid --key-hex: %w", err)
		}
		return key, nil
	case path == "":
		return nil, fmt.Errorf("--keystore or --key-hex is required")
	}
	pass, err := newPassphraseSource().Get()
	if err != nil {
		return nil, err
	}
	return crypto.LoadFromKeystore(path, pass)
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var signer signerFlags
	signer.register(fs, "signer keystore")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	key, err := signer.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, key.PubKey().Address().Hex())
	return 0
}

// contentFlags resolves --content, --content-file and --delete into the
// optional payload of a write.
type contentFlags struct {
	content     string
	contentFile string
	remove      bool
}

func (c *contentFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.content, "content", "", "value to store")
	fs.StringVar(&c.contentFile, "content-file", "", "read the value to store from a file")
	fs.BoolVar(&c.remove, "delete", false, "delete the entry instead of writing")
}

func (c *contentFlags) payload(fs *flag.FlagSet) (*string, error) {
	sources := 0
	for _, set := range []bool{flagProvided(fs, "content"), c.contentFile != "", c.remove} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of --content, --content-file or --delete is required")
	}
	switch {
	case c.remove:
		return nil, nil
	case c.contentFile != "":
		raw, err := os.ReadFile(c.contentFile)
		if err != nil {
			return nil, err
		}
		value := string(raw)
		return &value, nil
	default:
		value := c.content
		return &value, nil
	}
}

func signPayload(key *crypto.PrivateKey, payload *string) (string, error) {
	var content []byte
	if payload != nil {
		content = []byte(*payload)
	}
	sig, err := key.SignContent(content)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

func runSign(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var signer signerFlags
	var content contentFlags
	signer.register(fs, "signer keystore")
	content.register(fs)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	payload, err := content.payload(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := signer.load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	proof, err := signPayload(key, payload)
	if err != nil {
		fmt.Fprintf(stderr, "Error signing: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, proof)
	return 0
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var account, secret, issuer, audience string
	var ttl time.Duration
	fs.StringVar(&account, "account", "", "native account bound to the token")
	fs.StringVar(&secret, "secret", os.Getenv(config.EnvJWTSecret), "HMAC signing secret")
	fs.StringVar(&issuer, "issuer", "registryd", "token issuer")
	fs.StringVar(&audience, "audience", "", "token audience")
	fs.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	token, err := rpc.IssueToken(secret, issuer, audience, registry.AccountID(account), ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
