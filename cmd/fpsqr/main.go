// Command fpsqr generates an FPS payment payload from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/fps2me/fpsqr/emv"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/config"
	"github.com/fps2me/fpsqr/labels"
	"github.com/fps2me/fpsqr/render"
	"github.com/fps2me/fpsqr/rules"
)

// Exit codes
const (
	exitOK         = 0
	exitFailed     = 1
	exitValidation = 2
	exitUsage      = 64
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fpsqr", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath string
		id         string
		confirm    string
		amount     string
		currency   string
		merchant   string
		pngPath    string
		rulesPath  string
		inspect    string
		lang       string
		terminal   bool
		digits     bool
		asJSON     bool
	)
	fs.StringVar(&configPath, "config", "", "Path to YAML config (default $"+config.EnvConfigPath+")")
	fs.StringVar(&id, "id", "", "Payee identifier: mobile, email or FPS ID (required)")
	fs.StringVar(&confirm, "confirm", "", "The identifier again (required)")
	fs.StringVar(&amount, "amount", "", "Amount; omit for an open-amount code")
	fs.StringVar(&currency, "currency", "", "HKD or CNY (default from config)")
	fs.StringVar(&merchant, "merchant", "", "Merchant name (default from config)")
	fs.StringVar(&pngPath, "png", "", "Write the QR code as PNG to this file")
	fs.StringVar(&rulesPath, "rules", "", "YAML classification rule set")
	fs.StringVar(&inspect, "inspect", "", "Decode and verify a payload instead of generating one")
	fs.StringVar(&lang, "lang", os.Getenv("LANG"), "Message language, e.g. en or zh-HK")
	fs.BoolVar(&terminal, "qr", false, "Print the QR code to the terminal")
	fs.BoolVar(&digits, "digits", false, "Strip non-digits from -id and -confirm")
	fs.BoolVar(&asJSON, "json", false, "Print the result as JSON")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if inspect != "" {
		return runInspect(inspect, stdout, stderr)
	}

	if id == "" || confirm == "" {
		fmt.Fprintln(stderr, "-id and -confirm are required")
		fs.Usage()
		return exitUsage
	}

	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}
	if rulesPath != "" {
		cfg.Rules.File = rulesPath
	}
	if merchant != "" {
		cfg.Generation.MerchantName = merchant
	}

	engine, err := rules.LoadEngine(cfg.Rules.File)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load rules: %v\n", err)
		return exitUsage
	}

	printer := labels.For(labels.Match(lang))

	if digits {
		id = identifier.DigitsOnly(id)
		confirm = identifier.DigitsOnly(confirm)
	}

	meta, err := paymentMeta(amount, currency, cfg.Currency())
	if err != nil {
		return reportValidation(stderr, printer, err)
	}

	req := generation.NewRequest(id, confirm, meta, engine)
	controller := generation.New(emv.NewEncoder(),
		generation.WithMerchantName(cfg.Generation.MerchantName),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout.Std())
	defer cancel()

	snap, err := controller.Generate(ctx, req)
	if generation.IsValidation(err) {
		return reportValidation(stderr, printer, err)
	}

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		enc.Encode(snap)
	}
	if err != nil {
		fmt.Fprintln(stderr, printer.Sprintf(labels.Failed, snap.Reason))
		return exitFailed
	}

	if !asJSON {
		fmt.Fprintf(stderr, "%s\n", printer.Sprintf(labels.Detected, printer.Kind(snap.Kind)))
		fmt.Fprintln(stdout, snap.Payload)
	}

	if terminal {
		art, err := render.Terminal(snap.Payload, cfg.RenderOptions().Level)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitFailed
		}
		fmt.Fprint(stdout, art)
	}

	if pngPath != "" {
		data, err := render.PNG(snap.Payload, cfg.RenderOptions())
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitFailed
		}
		if err := os.WriteFile(pngPath, data, 0o644); err != nil {
			fmt.Fprintf(stderr, "failed to write %s: %v\n", pngPath, err)
			return exitFailed
		}
	}

	return exitOK
}

func paymentMeta(amount, currency string, fallback generation.Currency) (generation.PaymentMeta, error) {
	meta := generation.PaymentMeta{Currency: fallback}

	a, err := generation.ParseAmount(amount)
	if err != nil {
		return meta, err
	}
	meta.Amount = a

	if currency != "" {
		c, err := generation.ParseCurrency(currency)
		if err != nil {
			return meta, err
		}
		meta.Currency = c
	}
	return meta, nil
}

func reportValidation(stderr io.Writer, printer *labels.Printer, err error) int {
	var ve *generation.ValidationError
	if errors.As(err, &ve) {
		fmt.Fprintf(stderr, "%s (%s)\n", printer.Validation(ve), ve.Field)
	} else {
		fmt.Fprintln(stderr, err)
	}
	return exitValidation
}

func runInspect(payload string, stdout, stderr io.Writer) int {
	p, err := emv.Parse(payload)
	if err != nil {
		fmt.Fprintf(stderr, "invalid payload: %v\n", err)
		return exitFailed
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailed
	}
	return exitOK
}
