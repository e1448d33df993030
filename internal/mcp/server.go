package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/invoicegen/internal/config"
	"github.com/a3tai/invoicegen/internal/descriptions"
	"github.com/a3tai/invoicegen/internal/invoice"
)

const maxListedInvoices = 10

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *invoice.Service
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *invoice.Service, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		mcpServer: mcpServer,
		logger:    logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	generateTool := mcp.NewTool(
		descriptions.ToolGenerate,
		mcp.WithDescription(descriptions.GetToolSummary(descriptions.ToolGenerate)),
		mcp.WithString("delivery_date",
			mcp.Required(),
			mcp.Description("Delivery date, preferably YYYY-MM-DD"),
		),
		mcp.WithString("vehicle_number",
			mcp.Required(),
			mcp.Description("Vehicle registration, e.g. JW-1237"),
		),
		mcp.WithNumber("quantity",
			mcp.Required(),
			mcp.Description("Quantity in metric tons, e.g. 40.330"),
		),
		mcp.WithNumber("unit_price",
			mcp.Required(),
			mcp.Description("Price per metric ton in rupees, e.g. 39500"),
		),
	)
	s.mcpServer.AddTool(generateTool, s.handleGenerate)

	wordsTool := mcp.NewTool(
		descriptions.ToolAmountInWords,
		mcp.WithDescription(descriptions.GetToolSummary(descriptions.ToolAmountInWords)),
		mcp.WithNumber("amount",
			mcp.Required(),
			mcp.Description("Non-negative whole number of rupees"),
		),
	)
	s.mcpServer.AddTool(wordsTool, s.handleAmountInWords)

	inspectTool := mcp.NewTool(
		descriptions.ToolInspect,
		mcp.WithDescription(descriptions.GetToolSummary(descriptions.ToolInspect)),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Invoice file name such as Invoice_312.pdf, or a path inside the invoice directory"),
		),
	)
	s.mcpServer.AddTool(inspectTool, s.handleInspect)

	listTool := mcp.NewTool(
		descriptions.ToolList,
		mcp.WithDescription(descriptions.GetToolSummary(descriptions.ToolList)),
	)
	s.mcpServer.AddTool(listTool, s.handleList)

	serverInfoTool := mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.GetToolSummary(descriptions.ToolServerInfo)),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleGenerate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	quantity, err := numberArg(args, "quantity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	unitPrice, err := numberArg(args, "unit_price")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := invoice.Request{
		DeliveryDate:  stringArg(args, "delivery_date"),
		VehicleNumber: stringArg(args, "vehicle_number"),
		Quantity:      quantity,
		UnitPrice:     unitPrice,
	}

	result, err := s.service.Generate(ctx, req)
	if err != nil {
		s.logger.Warn("invoice_generate failed", zap.Error(err))
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Invoice generated: %s\n", result.Filename)
	text += fmt.Sprintf("Invoice Number: %d\n", result.InvoiceNumber)
	text += fmt.Sprintf("Total Amount: %s\n", result.TotalText)
	text += fmt.Sprintf("Amount in words: %s\n", result.AmountInWords)
	text += fmt.Sprintf("Path: %s\n", result.Path)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleAmountInWords(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amount, err := wholeNumberArg(request.GetArguments(), "amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.service.AmountInWords(amount)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleInspect(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	file, err := request.RequireString("file")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	inspection, err := s.service.Inspect(file)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(FormatInspection(inspection)), nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	files, err := s.service.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No invoices found in directory: %s", s.service.Directory())), nil
	}

	text := fmt.Sprintf("Found %d invoice(s) in directory: %s\n\nFiles:\n", len(files), s.service.Directory())
	for i, file := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	next, err := s.service.NextNumber(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read invoice sequence: %v", err)), nil
	}
	files, err := s.service.List()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	parties := s.service.Parties()

	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Invoice Directory: %s\n", s.service.Directory())
	text += fmt.Sprintf("Sequence: %s\n", s.config.Sequence)
	text += fmt.Sprintf("Next Invoice Number: %d\n", next)
	text += fmt.Sprintf("Bill To: %s\n", parties.BillTo)
	text += fmt.Sprintf("Payable To: %s\n", parties.PayableTo)
	text += fmt.Sprintf("Item: %s\n\n", parties.Item)

	if len(files) > 0 {
		text += fmt.Sprintf("Recent Invoices (%d found):\n", len(files))
		for i, file := range files {
			if i >= maxListedInvoices {
				text += fmt.Sprintf("   ... and %d more files\n", len(files)-maxListedInvoices)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "Recent Invoices: none generated yet\n\n"
	}

	text += "Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		text += fmt.Sprintf("\n• %s\n", name)
		text += fmt.Sprintf("  %s\n", descriptions.GetToolSummary(name))
	}

	text += "\n" + descriptions.GetToolDescription(descriptions.ToolGenerate)

	return mcp.NewToolResultText(text), nil
}

// FormatInspection renders an inspection as plain text.
func FormatInspection(in *invoice.Inspection) string {
	if !in.Valid {
		return fmt.Sprintf("Invoice validation failed for %s: %s\n", in.Path, in.Message)
	}

	text := fmt.Sprintf("Invoice File: %s\n", in.Path)
	text += fmt.Sprintf("Size: %d bytes\n", in.Size)
	text += fmt.Sprintf("Pages: %d\n", in.Pages)
	if in.Title != "" {
		text += fmt.Sprintf("Title: %s\n", in.Title)
	}
	if in.Producer != "" {
		text += fmt.Sprintf("Producer: %s\n", in.Producer)
	}

	if len(in.Properties) > 0 {
		keys := make([]string, 0, len(in.Properties))
		for k := range in.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		text += "\nProperties:\n"
		for _, k := range keys {
			text += fmt.Sprintf("  %s: %s\n", k, in.Properties[k])
		}
	}

	text += "\nContent:\n"
	text += in.Content

	return text
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// numberArg accepts a JSON number or a numeric string. A missing argument
// yields an empty number so request validation can report it.
func numberArg(args map[string]any, key string) (invoice.Amount, error) {
	switch v := args[key].(type) {
	case nil:
		return "", nil
	case float64:
		return invoice.Amount(strconv.FormatFloat(v, 'f', -1, 64)), nil
	case json.Number:
		return invoice.Amount(v), nil
	case string:
		return invoice.Amount(strings.TrimSpace(v)), nil
	default:
		return "", fmt.Errorf("%s must be a number", key)
	}
}

func wholeNumberArg(args map[string]any, key string) (int64, error) {
	n, err := numberArg(args, key)
	if err != nil {
		return 0, err
	}
	if n == "" {
		return 0, fmt.Errorf("required argument %q not found", key)
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%s must be a whole number, got %s", key, n)
	}
	return int64(f), nil
}

// Run serves MCP over stdin and stdout until ctx is cancelled or stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve speaks MCP over the given streams.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Debug("starting MCP server in stdio mode",
		zap.String("directory", s.service.Directory()),
		zap.String("sequence", s.config.Sequence),
	)

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
