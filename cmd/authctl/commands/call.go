package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/authsession/cmd/authctl/cmdutil"
	"github.com/marmos91/authsession/pkg/apiclient"
)

var (
	callData    string
	callHeaders []string
	callPublic  bool
)

var callCmd = &cobra.Command{
	Use:   "call METHOD PATH",
	Short: "Send an arbitrary request",
	Long: `Send a request with any method and an optional JSON body.

The body is given inline or read from a file with an @ prefix. Requests
carry the stored session unless --public is set.

Examples:
  # Create a resource
  authctl call POST /api/v1/orders --data '{"sku":"A-100","quantity":2}'

  # Body from a file
  authctl call PUT /api/v1/profile --data @profile.json

  # Unauthenticated call
  authctl call GET /health --public`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "JSON body, or @file to read it from a file")
	callCmd.Flags().StringArrayVarP(&callHeaders, "header", "H", nil, "Extra header as 'Name: value' (repeatable)")
	callCmd.Flags().BoolVar(&callPublic, "public", false, "Send without credentials")
}

func runCall(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	path := args[1]

	opts := &apiclient.RequestOptions{Method: method, Public: callPublic}

	body, err := readBody(callData)
	if err != nil {
		return err
	}
	if body != nil {
		opts.Body = body
	}

	opts.Headers, err = parseHeaders(callHeaders)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	rt, err := cmdutil.Open(ctx, Version)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	var result json.RawMessage
	if err := rt.Client.Execute(ctx, path, opts, &result); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, cmdutil.FriendlyError(err))
	}

	if len(result) == 0 {
		cmdutil.PrintSuccess(fmt.Sprintf("%s %s succeeded", method, path))
		return nil
	}

	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	return printBody(cmd.OutOrStdout(), format, result)
}

// readBody returns the JSON body named by data, or nil when data is empty.
func readBody(data string) (json.RawMessage, error) {
	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	if name, ok := strings.CutPrefix(data, "@"); ok {
		b, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read body file: %w", err)
		}
		raw = b
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("request body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

// parseHeaders turns "Name: value" strings into a header map.
func parseHeaders(values []string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q (expected 'Name: value')", v)
		}
		headers[http.CanonicalHeaderKey(name)] = strings.TrimSpace(value)
	}
	return headers, nil
}
