package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPlugin        = "plugin"
	KeyHook          = "hook"
	KeyEnvironment   = "environment"
	KeyAsset         = "asset"
	KeyBuildID       = "build_id"
	KeyCompilationID = "compilation_id"
	KeyStage         = "stage"
	KeyDurationMS    = "duration_ms"
	KeyMode          = "mode"
	KeyPath          = "path"
	KeyError         = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Plugin(name string) slog.Attr     { return slog.String(KeyPlugin, name) }
func Hook(name string) slog.Attr       { return slog.String(KeyHook, name) }
func Environment(n string) slog.Attr   { return slog.String(KeyEnvironment, n) }
func Asset(name string) slog.Attr      { return slog.String(KeyAsset, name) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func CompilationID(id string) slog.Attr { return slog.String(KeyCompilationID, id) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Mode(m string) slog.Attr          { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
