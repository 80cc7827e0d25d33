// Command fpsqr-mcp serves identifier classification and FPS payload
// generation as MCP tools over stdio.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fps2me/fpsqr/emv"
	"github.com/fps2me/fpsqr/generation"
	"github.com/fps2me/fpsqr/identifier"
	"github.com/fps2me/fpsqr/internal/config"
	"github.com/fps2me/fpsqr/internal/logger"
	"github.com/fps2me/fpsqr/render"
	"github.com/fps2me/fpsqr/rules"
)

const version = "1.0.0"

type classifyArgs struct {
	Value   string  `json:"value"`
	Confirm *string `json:"confirm,omitempty"`
}

type classifyResult struct {
	Identifier   identifier.Identifier        `json:"identifier"`
	MatchedRule  string                       `json:"matchedRule,omitempty"`
	Confirmation *identifier.ConfirmationPair `json:"confirmation,omitempty"`
}

type generateArgs struct {
	Value        string   `json:"value"`
	Confirm      string   `json:"confirm"`
	Amount       *float64 `json:"amount,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	IncludeImage bool     `json:"include_image,omitempty"`
}

// tools holds what the tool handlers share
type tools struct {
	cfg     config.Config
	engine  *rules.Engine
	encoder generation.Encoder
}

func newServer(t *tools) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fpsqr",
			Version: version,
		},
		nil,
	)

	server.AddTool(&mcp.Tool{
		Name:        "classify_identifier",
		Description: "Classify a payee identifier as email, FPS ID or mobile number. Optionally check it against a confirmation entry.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value": map[string]any{
					"type":        "string",
					"description": "The identifier as entered",
				},
				"confirm": map[string]any{
					"type":        "string",
					"description": "The identifier entered a second time",
				},
			},
			"required": []string{"value"},
		},
	}, t.classify)

	server.AddTool(&mcp.Tool{
		Name:        "generate_fps_qr",
		Description: "Generate a Hong Kong FPS payment QR payload for a payee identifier. Both entries must match.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value": map[string]any{
					"type":        "string",
					"description": "Payee mobile number, email or FPS ID",
				},
				"confirm": map[string]any{
					"type":        "string",
					"description": "The same identifier again",
				},
				"amount": map[string]any{
					"type":        "number",
					"description": "Amount; omit for an open-amount code",
				},
				"currency": map[string]any{
					"type":        "string",
					"enum":        []string{"HKD", "CNY"},
					"description": "Currency, HKD by default",
				},
				"include_image": map[string]any{
					"type":        "boolean",
					"description": "Also return the QR code as a PNG image",
				},
			},
			"required": []string{"value", "confirm"},
		},
	}, t.generate)

	return server
}

func (t *tools) classify(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args classifyArgs
	if err := unmarshalArgs(request, &args); err != nil {
		return errorResult(err.Error()), nil
	}

	id := identifier.New(args.Value, t.engine)
	res := classifyResult{Identifier: id}
	if id.Canonical != "" {
		if m := t.engine.Match(id.Canonical); m != nil {
			res.MatchedRule = m.RuleID
		}
	}
	if args.Confirm != nil {
		pair := identifier.Confirm(args.Value, *args.Confirm)
		res.Confirmation = &pair
	}
	return jsonResult(res), nil
}

func (t *tools) generate(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args generateArgs
	if err := unmarshalArgs(request, &args); err != nil {
		return errorResult(err.Error()), nil
	}

	meta := generation.PaymentMeta{Amount: args.Amount, Currency: t.cfg.Currency()}
	if args.Currency != "" {
		c, err := generation.ParseCurrency(args.Currency)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		meta.Currency = c
	}

	controller := generation.New(t.encoder, generation.WithMerchantName(t.cfg.Generation.MerchantName))
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Generation.Timeout.Std())
	defer cancel()

	snap, err := controller.Generate(ctx, generation.NewRequest(args.Value, args.Confirm, meta, t.engine))
	if err != nil {
		var ve *generation.ValidationError
		if errors.As(err, &ve) {
			return errorResult(ve.Error()), nil
		}
		return errorResult(err.Error()), nil
	}

	result := jsonResult(snap)
	if args.IncludeImage {
		png, err := render.PNG(snap.Payload, t.cfg.RenderOptions())
		if err != nil {
			return errorResult(fmt.Sprintf("failed to render qr code: %v", err)), nil
		}
		result.Content = append(result.Content, &mcp.ImageContent{Data: png, MIMEType: "image/png"})
	}
	return result, nil
}

func unmarshalArgs(request *mcp.CallToolRequest, v any) error {
	if request.Params == nil || len(request.Params.Arguments) == 0 {
		return fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal(request.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $"+config.EnvConfigPath+")")
	rulesPath := flag.String("rules", "", "YAML classification rule set")
	flag.Parse()

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	if *rulesPath != "" {
		cfg.Rules.File = *rulesPath
	}

	engine, err := rules.LoadEngine(cfg.Rules.File)
	if err != nil {
		logger.Fatal("failed to load rules", "file", cfg.Rules.File, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := newServer(&tools{cfg: cfg, engine: engine, encoder: emv.NewEncoder()})
	logger.Info("mcp server starting", "transport", "stdio", "version", version)
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server stopped", "error", err)
	}
	logger.Shutdown(context.Background())
}
