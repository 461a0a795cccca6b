package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"idregistry/native/registry"
)

var registryRPCCall = callRegistryRPC

// identityFlags selects the target identity of a registry command.
type identityFlags struct {
	account   string
	evm       string
	canonical string
}

func (i *identityFlags) register(fs *flag.FlagSet, accountHelp string) {
	fs.StringVar(&i.account, "account", "", accountHelp)
	fs.StringVar(&i.evm, "evm", "", "EVM address (0x-prefixed hex)")
	fs.StringVar(&i.canonical, "identity", "", "canonical identity (near|<account> or evm|<address>)")
}

// param returns the wire form of the identity, or nil when no identity flag
// is set.
func (i *identityFlags) param() (interface{}, error) {
	account := strings.TrimSpace(i.account)
	evm := strings.TrimSpace(i.evm)
	canonical := strings.TrimSpace(i.canonical)
	set := 0
	for _, v := range []string{account, evm, canonical} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("--account, --evm and --identity are mutually exclusive")
	}
	switch {
	case account != "":
		return map[string]string{"accountId": account}, nil
	case evm != "":
		return map[string]string{"evmAddress": evm}, nil
	case canonical != "":
		identity, err := registry.ParseCanonical(canonical)
		if err != nil {
			return nil, err
		}
		return identity, nil
	default:
		return nil, nil
	}
}

func runSet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var target identityFlags
	var content contentFlags
	var signer signerFlags
	var label, proof string
	target.register(fs, "native account to write (defaults to the token's account)")
	content.register(fs)
	fs.StringVar(&label, "label", "", "label of the entry")
	fs.StringVar(&proof, "proof", "", "hex signature over the content (EVM identities)")
	signer.register(fs, "sign the content with this keystore (EVM identities)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(stderr, "Error: unexpected positional arguments")
		return 1
	}
	if !flagProvided(fs, "label") {
		fmt.Fprintln(stderr, "Error: --label is required")
		return 1
	}
	identity, err := target.param()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	payload, err := content.payload(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if proof != "" && signer.provided() {
		fmt.Fprintln(stderr, "Error: --proof cannot be combined with --keystore or --key-hex")
		return 1
	}
	if signer.provided() {
		key, err := signer.load()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		if proof, err = signPayload(key, payload); err != nil {
			fmt.Fprintf(stderr, "Error signing: %v\n", err)
			return 1
		}
	}

	params := map[string]interface{}{"label": label}
	if identity != nil {
		params["identity"] = identity
	}
	if payload != nil {
		params["content"] = *payload
	}
	if proof != "" {
		params["proof"] = proof
	}
	return invoke(stdout, stderr, "registry_set", params, true)
}

func runGet(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var target identityFlags
	var label string
	target.register(fs, "native account to read")
	fs.StringVar(&label, "label", "", "label of the entry")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	identity, err := target.param()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if identity == nil {
		fmt.Fprintln(stderr, "Error: --account, --evm or --identity is required")
		return 1
	}
	if !flagProvided(fs, "label") {
		fmt.Fprintln(stderr, "Error: --label is required")
		return 1
	}
	return invoke(stdout, stderr, "registry_get", map[string]interface{}{"identity": identity, "label": label}, false)
}

func runDelegate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("delegate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var target string
	fs.StringVar(&target, "target", "", "account allowed to write on behalf of the caller")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		fmt.Fprintln(stderr, "Error: --target is required (use revoke to clear the delegate)")
		return 1
	}
	return invoke(stdout, stderr, "registry_delegate", map[string]interface{}{"target": trimmed}, true)
}

func runRevoke(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("revoke", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return invoke(stdout, stderr, "registry_delegate", map[string]interface{}{}, true)
}

func runDelegateOf(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("delegate-of", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var account string
	fs.StringVar(&account, "account", "", "account whose delegate to show")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	trimmed := strings.TrimSpace(account)
	if trimmed == "" {
		fmt.Fprintln(stderr, "Error: --account is required")
		return 1
	}
	return invoke(stdout, stderr, "registry_getDelegate", map[string]interface{}{"account": trimmed}, false)
}

func invoke(stdout, stderr io.Writer, method string, params map[string]interface{}, requireAuth bool) int {
	result, rpcErr, err := registryRPCCall(method, []interface{}{params}, requireAuth)
	if err != nil {
		return handleRPCCallError(stderr, err)
	}
	if rpcErr != nil {
		return handleRPCError(stderr, rpcErr)
	}
	writeRPCResult(stdout, result)
	return 0
}

func flagProvided(fs *flag.FlagSet, name string) bool {
	provided := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			provided = true
		}
	})
	return provided
}
