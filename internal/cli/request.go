package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eislager/eislager-pro/sdk"
)

type requestFlags struct {
	service string
	data    string
	headers map[string]string
}

func (a *app) requestCommand() *cobra.Command {
	var f requestFlags

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send a request to a service and print the response envelope",
		Example: `  eisctl request GET /api/v1/inventory/flavors?page=2
  eisctl request POST /api/v1/orders --service sales --data '{"items":[{"flavorId":"f1","quantity":2}]}'
  eisctl request PUT /api/v1/flavors/f1 --service inventory --data @flavor.json`,
		Args: cobra.ExactArgs(2),
		RunE: a.withServices(func(cmd *cobra.Command, args []string, services *sdk.Services) error {
			return a.doRequest(cmd, services, strings.ToUpper(args[0]), args[1], f)
		}),
	}
	addRequestFlags(cmd, &f)
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "JSON body, or @file to read it from a file")
	return cmd
}

func (a *app) getCommand() *cobra.Command {
	var f requestFlags

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Send a GET request to a service",
		Args:  cobra.ExactArgs(1),
		RunE: a.withServices(func(cmd *cobra.Command, args []string, services *sdk.Services) error {
			return a.doRequest(cmd, services, "GET", args[0], f)
		}),
	}
	addRequestFlags(cmd, &f)
	return cmd
}

func addRequestFlags(cmd *cobra.Command, f *requestFlags) {
	cmd.Flags().StringVarP(&f.service, "service", "s", "", "target service; inferred from the path when empty")
	cmd.Flags().StringToStringVarP(&f.headers, "header", "H", nil, "extra request header as key=value")
}

func (a *app) doRequest(cmd *cobra.Command, services *sdk.Services, method, path string, f requestFlags) error {
	service := f.service
	if service == "" {
		service = serviceForPath(path)
	}
	client := services.Client(service)
	if client == nil {
		return fmt.Errorf("%w: unknown service %q for %s; pass --service (one of %s)",
			ErrUsage, service, path, strings.Join(services.Names(), ", "))
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	req := &sdk.Request{Method: method, Path: path, Headers: f.headers}
	if f.data != "" {
		body, err := readData(f.data)
		if err != nil {
			return err
		}
		req.Body = body
	}

	env, err := client.Request(cmd.Context(), req)
	if err != nil {
		return a.fail(cmd.OutOrStdout(), err)
	}
	return a.printEnvelope(cmd.OutOrStdout(), env)
}

// serviceForPath picks the service named by the first path segment after an
// optional /api/vN prefix.
func serviceForPath(path string) string {
	segments := strings.Split(strings.Trim(strings.SplitN(path, "?", 2)[0], "/"), "/")
	if len(segments) >= 2 && segments[0] == "api" && strings.HasPrefix(segments[1], "v") {
		segments = segments[2:]
	}
	if len(segments) == 0 {
		return ""
	}
	for _, name := range sdk.AllServices {
		if segments[0] == name {
			return name
		}
	}
	return segments[0]
}

func readData(data string) (json.RawMessage, error) {
	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		var err error
		raw, err = os.ReadFile(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, fmt.Errorf("%w: read body: %v", ErrUsage, err)
		}
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: --data is not valid JSON", ErrUsage)
	}
	return json.RawMessage(raw), nil
}
