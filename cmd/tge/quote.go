package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/config"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/crowdsale"
	"github.com/enjinstarter/enjinstarter-tge-contracts-sub001/fixedpoint"
)

var quoteCommand = cli.Command{
	Name:  "quote",
	Usage: "Show the lots, cost, and refund a payment would settle to",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "sale", Usage: "Crowdsale ID (required)"},
		cli.StringFlag{Name: "token", Usage: "Payment token address (required)"},
		cli.StringFlag{Name: "amount", Usage: "Payment in whole payment tokens, e.g. 250.5 (required)"},
	},
	Action: runQuote,
}

func findSale(sales []config.Crowdsale, id string) (config.Crowdsale, bool) {
	for _, s := range sales {
		if s.ID == id {
			return s, true
		}
	}
	return config.Crowdsale{}, false
}

func runQuote(c *cli.Context) error {
	env, err := loadEnvironment(c)
	if err != nil {
		return err
	}

	id := c.String("sale")
	if id == "" {
		return fmt.Errorf("--sale is required")
	}
	def, ok := findSale(env.Crowdsales, id)
	if !ok {
		return fmt.Errorf("environment %s has no crowdsale %q", env.Name, id)
	}

	tokenHex := c.String("token")
	if !common.IsHexAddress(tokenHex) {
		return fmt.Errorf("--token must be a hex address, got %q", tokenHex)
	}
	token := common.HexToAddress(tokenHex)

	cfg, err := def.Config(env.Deployer)
	if err != nil {
		return err
	}

	var decimals uint8
	found := false
	for _, pt := range cfg.PaymentTokens {
		if pt.Address == token {
			decimals, found = pt.Decimals, true
			break
		}
	}
	if !found {
		return fmt.Errorf("crowdsale %s does not accept %s", id, token.Hex())
	}

	if c.String("amount") == "" {
		return fmt.Errorf("--amount is required")
	}
	amount, err := fixedpoint.ParseUnits(c.String("amount"), decimals)
	if err != nil {
		return err
	}

	q, err := crowdsale.QuotePayment(cfg, token, amount)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "lots\t%d\n", q.Lots)
	fmt.Fprintf(w, "tokens\t%s\n", fixedpoint.FormatUnits(q.TokenAmount, fixedpoint.Decimals))
	fmt.Fprintf(w, "cost\t%s\n", fixedpoint.FormatUnits(q.Cost, decimals))
	fmt.Fprintf(w, "refund\t%s\n", fixedpoint.FormatUnits(q.Refund, decimals))
	return w.Flush()
}
