// staking-cli is a command-line client for a stakingd node.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Klingon-tech/winter-staking/config"
	"github.com/Klingon-tech/winter-staking/internal/host"
	"github.com/Klingon-tech/winter-staking/internal/keystore"
	"github.com/Klingon-tech/winter-staking/internal/rpc"
	"github.com/Klingon-tech/winter-staking/internal/rpcclient"
	"github.com/Klingon-tech/winter-staking/pkg/crypto"
	"github.com/Klingon-tech/winter-staking/pkg/types"
	"golang.org/x/term"
)

// keystoreDir returns the keystore stakingd uses for dataDir and network.
func keystoreDir(dataDir, network string) (string, error) {
	netType := config.NetworkType(network)
	if netType != config.Mainnet && netType != config.Testnet {
		return "", fmt.Errorf("unknown network %q", network)
	}
	cfg := config.Default(netType)
	cfg.DataDir = dataDir
	return cfg.KeystoreDir(), nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	rpcURL := "http://127.0.0.1:9545"
	dataDir := config.DefaultDataDir()
	network := string(config.Mainnet)

	// Scan for --rpc, --datadir and --network before the subcommand.
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--rpc" && len(args) > 1:
			rpcURL = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--rpc="):
			rpcURL = args[0][len("--rpc="):]
			args = args[1:]
		case args[0] == "--datadir" && len(args) > 1:
			dataDir = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--datadir="):
			dataDir = args[0][len("--datadir="):]
			args = args[1:]
		case args[0] == "--network" && len(args) > 1:
			network = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--network="):
			network = args[0][len("--network="):]
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	ksDir, err := keystoreDir(dataDir, network)
	if err != nil {
		fatal("%v", err)
	}
	client := rpcclient.New(rpcURL)
	cmd := args[0]
	cmdArgs := args[1:]

	switch cmd {
	case "keygen":
		cmdKeygen(cmdArgs, ksDir)
	case "accounts":
		cmdAccounts(ksDir)
	case "address":
		cmdAddress(cmdArgs, ksDir)
	case "delete":
		cmdDelete(cmdArgs, ksDir)
	case "deposit":
		cmdDeposit(client, cmdArgs, ksDir)
	case "stake":
		cmdStake(client, cmdArgs)
	case "stakes":
		cmdStakes(client)
	case "config":
		cmdConfig(client)
	case "epoch":
		cmdEpoch(client, cmdArgs)
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: staking-cli [global flags] <command> [flags]

Global flags:
  --rpc <url>         RPC endpoint (default: http://127.0.0.1:9545)
  --datadir <path>    Data directory (default: ~/.winter-staking)
  --network <net>     mainnet (default) or testnet

Accounts:
  keygen --name <n> [--import <hex>]
                                  Create an encrypted account key
  accounts                        List local accounts
  address --name <n>              Show an account's address
  delete --name <n>               Remove an account key (asks for its password)

Staking:
  deposit --name <n> --amount <amt> [--token <id>] [--nonce <n>]
                                  Sign and submit a deposit
  stake <address>                 Show an address's stake
  stakes                          List all stakes
  config                          Show accepted token and lock period

Epochs:
  epoch                           Show the current epoch
  epoch advance [--to <n>]        Advance the epoch (manual mode only)
`)
}

// ── Accounts ────────────────────────────────────────────────────────────

func cmdKeygen(args []string, ksDir string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	importHex := fs.String("import", "", "Existing private key (hex) instead of a new one")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: staking-cli keygen --name <name> [--import <hex>]")
	}

	var key *crypto.PrivateKey
	var err error
	if *importHex != "" {
		raw, decErr := hex.DecodeString(strings.TrimPrefix(*importHex, "0x"))
		if decErr != nil {
			fatal("invalid private key hex: %v", decErr)
		}
		key, err = crypto.PrivateKeyFromBytes(raw)
		for i := range raw {
			raw[i] = 0
		}
	} else {
		key, err = crypto.GenerateKey()
	}
	if err != nil {
		fatal("key: %v", err)
	}
	defer key.Zero()

	password, err := readPassword("Enter password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	if string(password) != string(confirm) {
		fatal("passwords do not match")
	}

	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	acct, err := ks.Create(*name, key, password, keystore.DefaultParams())
	if err != nil {
		fatal("create account: %v", err)
	}

	fmt.Printf("Account %q created.\n", acct.Name)
	fmt.Printf("Address: %s\n", acct.Address)
}

func cmdAccounts(ksDir string) {
	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	accts, err := ks.List()
	if err != nil {
		fatal("list accounts: %v", err)
	}
	if len(accts) == 0 {
		fmt.Println("No accounts.")
		return
	}
	for _, a := range accts {
		fmt.Printf("%-16s %s  (created %s)\n", a.Name, a.Address, a.CreatedAt.Format(time.RFC3339))
	}
}

func cmdAddress(args []string, ksDir string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: staking-cli address --name <name>")
	}
	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	acct, err := ks.Account(*name)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(acct.Address)
}

func cmdDelete(args []string, ksDir string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	fs.Parse(args)

	if *name == "" {
		fatal("Usage: staking-cli delete --name <name>")
	}
	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	// Only the key's owner may remove it.
	key, err := ks.Load(*name, password)
	if err != nil {
		fatal("load account: %v", err)
	}
	addr := key.Address()
	key.Zero()

	if err := ks.Delete(*name); err != nil {
		fatal("delete account: %v", err)
	}
	fmt.Printf("Account %q (%s) deleted.\n", *name, addr)
}

// ── Staking ─────────────────────────────────────────────────────────────

func cmdDeposit(client *rpcclient.Client, args []string, ksDir string) {
	fs := flag.NewFlagSet("deposit", flag.ExitOnError)
	name := fs.String("name", "", "Account name")
	amountStr := fs.String("amount", "", "Amount in base units")
	token := fs.String("token", "", "Token identifier (default: node's accepted token)")
	nonce := fs.Uint64("nonce", 0, "Request nonce (default: current unix nanoseconds)")
	fs.Parse(args)

	if *name == "" || *amountStr == "" {
		fatal("Usage: staking-cli deposit --name <name> --amount <amount> [--token <id>] [--nonce <n>]")
	}
	amount, ok := new(big.Int).SetString(*amountStr, 10)
	if !ok {
		fatal("invalid amount: %s", *amountStr)
	}

	if *token == "" {
		var cfg rpc.ConfigResult
		if err := client.Call("staking_getConfig", nil, &cfg); err != nil {
			fatal("staking_getConfig: %v", err)
		}
		*token = cfg.AcceptedToken
	}
	n := *nonce
	if n == 0 {
		n = uint64(time.Now().UnixNano())
	}

	ks, err := keystore.New(ksDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		fatal("read password: %v", err)
	}
	key, err := ks.Load(*name, password)
	if err != nil {
		fatal("load account: %v", err)
	}
	req, err := host.SignDeposit(key, types.TokenIdentifier(*token), amount, n)
	key.Zero()
	if err != nil {
		fatal("%v", err)
	}

	param := rpc.DepositParam{
		Token:     string(req.Token),
		Amount:    req.Amount.String(),
		Nonce:     req.Nonce,
		PubKey:    hex.EncodeToString(req.PubKey),
		Signature: hex.EncodeToString(req.Signature),
	}
	var result rpc.DepositResult
	if err := client.Call("staking_deposit", param, &result); err != nil {
		fatal("staking_deposit: %v", err)
	}

	fmt.Printf("Deposited %s %s at epoch %d.\n", *amountStr, *token, result.Epoch)
	fmt.Printf("Address:    %s\n", result.Address)
	fmt.Printf("Staked:     %s\n", result.Amount)
	fmt.Printf("Locked to:  epoch %d\n", result.LockUntilEpoch)
}

func cmdStake(client *rpcclient.Client, args []string) {
	if len(args) < 1 {
		fatal("Usage: staking-cli stake <address>")
	}
	var result rpc.StakeResult
	if err := client.Call("staking_getStakedTokens", rpc.AddressParam{Address: args[0]}, &result); err != nil {
		fatal("staking_getStakedTokens: %v", err)
	}
	fmt.Printf("Address:    %s\n", result.Address)
	fmt.Printf("Staked:     %s\n", result.Amount)
	fmt.Printf("Locked to:  epoch %d\n", result.LockUntilEpoch)
}

func cmdStakes(client *rpcclient.Client) {
	var result rpc.StakeListResult
	if err := client.Call("staking_listStakes", nil, &result); err != nil {
		fatal("staking_listStakes: %v", err)
	}
	if len(result.Stakes) == 0 {
		fmt.Println("No stakes.")
		return
	}
	fmt.Printf("%-42s  %24s  %s\n", "ADDRESS", "AMOUNT", "LOCKED TO")
	for _, s := range result.Stakes {
		fmt.Printf("%-42s  %24s  %d\n", s.Address, s.Amount, s.LockUntilEpoch)
	}
	fmt.Printf("\nTotal staked: %s (%d accounts)\n", result.Total, len(result.Stakes))
}

func cmdConfig(client *rpcclient.Client) {
	var result rpc.ConfigResult
	if err := client.Call("staking_getConfig", nil, &result); err != nil {
		fatal("staking_getConfig: %v", err)
	}
	fmt.Printf("Accepted token:      %s\n", result.AcceptedToken)
	fmt.Printf("Min staking epochs:  %d\n", result.MinStakingEpochs)
}

// ── Epochs ──────────────────────────────────────────────────────────────

func cmdEpoch(client *rpcclient.Client, args []string) {
	if len(args) == 0 {
		var result rpc.EpochResult
		if err := client.Call("epoch_getCurrent", nil, &result); err != nil {
			fatal("epoch_getCurrent: %v", err)
		}
		fmt.Println(result.Epoch)
		return
	}

	if args[0] != "advance" {
		fatal("Usage: staking-cli epoch [advance [--to <n>]]")
	}
	fs := flag.NewFlagSet("epoch advance", flag.ExitOnError)
	to := fs.String("to", "", "Target epoch (default: current + 1)")
	fs.Parse(args[1:])

	var param rpc.EpochAdvanceParam
	if *to != "" {
		n, err := strconv.ParseUint(*to, 10, 64)
		if err != nil {
			fatal("invalid epoch: %s", *to)
		}
		param.To = &n
	}
	var result rpc.EpochResult
	if err := client.Call("epoch_advance", param, &result); err != nil {
		fatal("epoch_advance: %v", err)
	}
	fmt.Printf("Epoch is now %d.\n", result.Epoch)
}

// ── Helpers ─────────────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
