// Package cli implements the tamween command-line tool. It operates on the
// same durable slot as the web server through core.Service.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tamween/internal/core"
)

// Exit codes.
const (
	ExitOK       = 0
	ExitError    = 1
	ExitUsage    = 2
	ExitDeclined = 3
	// ExitWarning means the change was applied but could not be saved.
	ExitWarning = 4
)

// codedError carries a process exit code.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *codedError
	if errors.As(err, &ce) {
		return ce.code
	}
	if errors.Is(err, core.ErrConfirmationRequired) {
		return ExitDeclined
	}
	if core.IsWriteWarning(err) {
		return ExitWarning
	}
	return ExitError
}

// applied reports whether a mutation took effect, possibly with a
// *core.WriteWarning that the caller still has to report.
func applied(err error) bool {
	return err == nil || core.IsWriteWarning(err)
}

// OpenFunc returns the service to operate on and a function releasing it.
type OpenFunc func(ctx context.Context) (*core.Service, func() error, error)

// Options configures the root command.
type Options struct {
	Open OpenFunc
	// Lang is the default language of headers and messages.
	Lang string
}

// state is shared by the subcommands of one invocation.
type state struct {
	opts    Options
	lang    string
	service *core.Service
	closer  func() error
}

// ctx tags cmd's context as a CLI change source.
func (st *state) ctx(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return core.ContextWithOrigin(ctx, "cli")
}

// NewRootCmd builds the tamween command tree.
func NewRootCmd(opts Options) *cobra.Command {
	root, _ := newRoot(opts)
	return root
}

// Execute runs the command tree with args and releases the service even
// when the command fails. It also returns the language the run used, for
// reporting the error.
func Execute(ctx context.Context, opts Options, args []string) (string, error) {
	root, st := newRoot(opts)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if st.closer != nil {
		if cerr := st.closer(); err == nil {
			err = cerr
		}
	}
	return core.MatchLanguage(st.lang, opts.Lang), err
}

func newRoot(opts Options) (*cobra.Command, *state) {
	st := &state{opts: opts}

	root := &cobra.Command{
		Use:           "tamween",
		Short:         "Manage the ration-card customer register",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			st.lang = core.MatchLanguage(st.lang, opts.Lang)
			svc, closer, err := opts.Open(st.ctx(cmd))
			if err != nil {
				return err
			}
			st.service = svc
			st.closer = closer
			return nil
		},
	}
	root.PersistentFlags().StringVar(&st.lang, "lang", "", "Language of headers and messages: ar or en (default from UI_LANG)")

	root.AddCommand(
		newListCmd(st),
		newShowCmd(st),
		newAddCmd(st),
		newUpdateCmd(st),
		newDeleteCmd(st),
		newStatsCmd(st),
		newExportCmd(st),
		newImportCmd(st),
		newResetCmd(st),
	)
	return root, st
}
