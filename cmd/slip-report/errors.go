package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/Sternrassler/alma-slip-report/pkg/client"
	"github.com/Sternrassler/alma-slip-report/pkg/columns"
	"github.com/Sternrassler/alma-slip-report/pkg/ratelimit"
)

const unauthorizedHint = "you are not authorised: the API key's user needs a Circulation Desk Operator role for this library and desk"

// explain prints a hint for errors a user can act on and returns err in the
// form the caller should surface.
func explain(w io.Writer, err error) error {
	if err == nil {
		return nil
	}

	hint := color.CyanString("hint:")
	switch {
	case client.InvalidParameterFrom(err) != nil:
		ipe := client.InvalidParameterFrom(err)
		if len(ipe.ValidOptions) > 0 {
			fmt.Fprintf(w, "%s valid values for %s: %s\n", hint, ipe.Parameter, strings.Join(ipe.ValidOptions, ", "))
		} else {
			fmt.Fprintf(w, "%s no valid values for %s are available to this API key\n", hint, ipe.Parameter)
		}
		return ipe
	case client.IsUnauthorized(err):
		fmt.Fprintf(w, "%s %s\n", hint, unauthorizedHint)
	case errors.Is(err, ratelimit.ErrQuotaExhausted):
		fmt.Fprintf(w, "%s the daily Alma API quota is nearly used up; try again after midnight UTC\n", hint)
	case errors.Is(err, columns.ErrUnknownColumn):
		fmt.Fprintf(w, "%s run 'slip-report columns' to list the available columns\n", hint)
	case errors.Is(err, errNoLibrary):
		fmt.Fprintf(w, "%s set report.library in the config file or pass --library\n", hint)
	}
	return err
}
