package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/term"

	"github.com/mrz1836/chainpay/internal/balance"
	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
)

// promptPasswordFn is replaced in tests.
//
//nolint:gochecknoglobals // Swappable for tests
var promptPasswordFn = promptPassword

// promptPassword prompts for a password with hidden input.
// The caller is responsible for zeroing the returned bytes after use.
func promptPassword(prompt string) ([]byte, error) {
	_, _ = fmt.Fprint(os.Stderr, prompt)

	password, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec // G115: Fd() fits in int on supported platforms
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// terminalConsent asks the wallet owner to confirm each wallet request on
// the terminal. Anything but "y" or "yes" is a rejection.
type terminalConsent struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	reg *network.Registry
}

func newTerminalConsent(in io.Reader, out io.Writer, reg *network.Registry) *terminalConsent {
	return &terminalConsent{in: bufio.NewReader(in), out: out, reg: reg}
}

// Confirm implements provider.Consent.
func (c *terminalConsent) Confirm(ctx context.Context, p provider.Prompt) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	_, _ = fmt.Fprintln(c.out)
	_, _ = fmt.Fprint(c.out, describePrompt(p, c.reg))
	_, _ = fmt.Fprint(c.out, "Approve? [y/N]: ")

	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

// describePrompt renders the request the way a wallet popup would.
func describePrompt(p provider.Prompt, reg *network.Registry) string {
	desc, known := reg.ByChainID(p.ChainID)
	chainName := p.ChainName
	if chainName == "" {
		chainName = fmt.Sprintf("chain %d", p.ChainID)
		if known {
			chainName = desc.Name
		}
	}

	var sb strings.Builder
	switch p.Kind {
	case provider.PromptConnect:
		fmt.Fprintf(&sb, "Connect account %s on %s\n", p.Account.Hex(), chainName)
	case provider.PromptAddChain:
		fmt.Fprintf(&sb, "Add and switch to network %s (chain id %d)\n", chainName, p.ChainID)
	case provider.PromptSendTransaction:
		fmt.Fprintf(&sb, "Send transaction on %s\n", chainName)
		fmt.Fprintf(&sb, "  from:   %s\n", p.Account.Hex())
		symbol, decimals := "ETH", chain.NativeDecimals
		if known {
			symbol, decimals = desc.NativeCurrency.Symbol, desc.NativeCurrency.Decimals
		}
		if p.To != nil {
			fmt.Fprintf(&sb, "  to:     %s\n", p.To.Hex())
		}
		if p.Value != nil && p.Value.Sign() > 0 {
			fmt.Fprintf(&sb, "  value:  %s %s\n", chain.FormatDecimalAmount(p.Value, decimals), symbol)
		}
		if action := describeCall(p.Data, p.To, desc, known); action != "" {
			fmt.Fprintf(&sb, "  action: %s\n", action)
		}
		if p.Fee != nil {
			fmt.Fprintf(&sb, "  max fee: %s %s\n", balance.FormatBalance(chain.FormatDecimalAmount(p.Fee, decimals)), symbol)
		}
	default:
		fmt.Fprintf(&sb, "Wallet request %q on %s\n", p.Kind, chainName)
	}
	return sb.String()
}

// describeCall names an ERC-20 approve or transfer. Token amounts are in
// base units since token decimals vary by chain.
func describeCall(data []byte, to *common.Address, desc network.Descriptor, known bool) string {
	if len(data) == 0 {
		return ""
	}
	call, err := erc20.DecodeCall(data)
	if err != nil || len(call.Args) != 2 {
		return fmt.Sprintf("contract call (%d bytes)", len(data))
	}

	counterparty, _ := call.Args[0].(common.Address)
	amount, _ := call.Args[1].(*big.Int)
	token := "token"
	if known && to != nil && desc.HasUSDC() && *to == *desc.USDCAddress {
		token = "USDC"
	}

	switch call.Method {
	case erc20.MethodApprove:
		return fmt.Sprintf("approve %s to spend %s %s base units", counterparty.Hex(), amount, token)
	case erc20.MethodTransfer:
		return fmt.Sprintf("transfer %s %s base units to %s", amount, token, counterparty.Hex())
	default:
		return call.Method
	}
}
