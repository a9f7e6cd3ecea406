package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
)

// exitCodes maps categories to process exit codes. Unclassified errors exit
// with 1.
var exitCodes = map[ErrorCategory]int{
	CategoryValidation: 2,
	CategoryConfig:     7,
	CategoryPlugin:     9,
	CategoryHook:       9,
	CategoryInternal:   10,
	CategoryBundler:    11,
	CategorySyntax:     11,
	CategoryFileSystem: 11,
}

// CLIErrorAdapter prints command errors and picks the exit code.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter returns an adapter writing to stderr. A nil logger
// means slog.Default.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr}
}

// ExitCodeFor returns the exit code for err; nil is 0.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if re, ok := As(err); ok {
		if code, ok := exitCodes[re.Category]; ok {
			return code
		}
	}
	return 1
}

// FormatError renders err as a one-line message. Configuration mistakes
// show only the message; build failures keep their cause.
func (a *CLIErrorAdapter) FormatError(err error) string {
	re, ok := As(err)
	switch {
	case err == nil:
		return ""
	case !ok:
		return fmt.Sprintf("Error: %v", err)
	case a.verbose:
		return re.Error()
	case re.Category == CategoryConfig || re.Category == CategoryValidation:
		return re.Message
	case re.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", re.Category, re.Message, re.Cause)
	default:
		return fmt.Sprintf("%s: %s", re.Category, re.Message)
	}
}

// HandleError logs err with its context, prints it and returns the exit
// code.
func (a *CLIErrorAdapter) HandleError(err error) int {
	if err == nil {
		return 0
	}
	if re, ok := As(err); ok {
		keys := make([]string, 0, len(re.Context))
		for k := range re.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		attrs := []slog.Attr{slog.String("category", string(re.Category))}
		for _, k := range keys {
			attrs = append(attrs, slog.Any(k, re.Context[k]))
		}
		level := slog.LevelError
		if re.Severity == SeverityWarning {
			level = slog.LevelWarn
		}
		a.logger.LogAttrs(context.Background(), level, re.Message, attrs...)
	} else {
		a.logger.Error("Unclassified error", "error", err)
	}
	fmt.Fprintln(a.out, a.FormatError(err))
	return a.ExitCodeFor(err)
}
