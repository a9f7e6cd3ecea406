package errors

import "strings"

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *RsbuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *RsbuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration file is invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *RsbuildError {
	return New(CategoryValidation, SeverityFatal, "validation failed: "+field+": "+reason).
		WithContext("field", field).
		WithContext("reason", reason)
}

// Plugin ordering errors

func DuplicatePlugin(name string) *RsbuildError {
	return New(CategoryConfig, SeverityFatal, "plugin "+name+" is already registered").
		WithContext("plugin", name)
}

func MissingRequiredPlugin(plugin, required string) *RsbuildError {
	return New(CategoryConfig, SeverityFatal, "plugin "+plugin+" requires missing plugin "+required).
		WithContext("plugin", plugin).
		WithContext("required", required)
}

func PluginOrderCycle(cycle []string, cause error) *RsbuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "plugin ordering cycle: "+strings.Join(cycle, ", ")).
		WithContext("cycle", cycle)
}

func ChainOrderCycle(collection string, cycle []string, cause error) *RsbuildError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "chain ordering cycle in "+collection+": "+strings.Join(cycle, ", ")).
		WithContext("collection", collection).
		WithContext("cycle", cycle)
}

// HookFailed marks a plugin handler failure. cause normally carries the
// plugin and hook identity itself.
func HookFailed(plugin, hook string, cause error) *RsbuildError {
	return Wrap(cause, CategoryHook, SeverityFatal, "plugin "+plugin+" failed in "+hook).
		WithContext("plugin", plugin).
		WithContext("hook", hook)
}

// Build pipeline errors

func BundlerFailed(environment string, cause error) *RsbuildError {
	return Wrap(cause, CategoryBundler, SeverityFatal, "bundler failed").
		WithContext("environment", environment)
}

func FileSystemError(operation, path string, cause error) *RsbuildError {
	return Wrap(cause, CategoryFileSystem, SeverityError, operation+" failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *RsbuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
