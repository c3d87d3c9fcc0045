package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/eislager/eislager-pro/sdk"
)

const (
	outputText = "text"
	outputJSON = "json"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printEnvelope writes env as indented JSON, or in text mode as a status
// line followed by the indented data.
func (a *app) printEnvelope(w io.Writer, env *sdk.Envelope) error {
	if a.output == outputJSON {
		return writeJSON(w, env)
	}

	if env.Success {
		fmt.Fprintln(w, "success")
	} else {
		fmt.Fprintln(w, "failure")
		if env.Error != nil {
			fmt.Fprintf(w, "error: %s: %s\n", env.Error.Code, env.Error.Message)
		}
	}
	if env.Message != "" {
		fmt.Fprintf(w, "message: %s\n", env.Message)
	}
	if !env.HasData() {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, env.Data, "", "  "); err != nil {
		return err
	}
	fmt.Fprintln(w, buf.String())
	return nil
}

// fail prints err as a failure envelope in JSON mode and returns it for the
// exit code.
func (a *app) fail(w io.Writer, err error) error {
	if a.output != outputJSON {
		return err
	}
	var sdkErr *sdk.Error
	if errors.As(err, &sdkErr) {
		_ = writeJSON(w, sdk.NewErrorEnvelope(sdkErr))
	} else {
		_ = writeJSON(w, sdk.NewErrorEnvelope(err))
	}
	return err
}
