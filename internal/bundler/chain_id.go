package bundler

// Chain entry names used by the builtin plugins. Handlers use them to find
// and adjust entries created by others.
const (
	PluginDefine      = "define"
	PluginBanner      = "banner"
	PluginHTML        = "html"
	PluginCheckSyntax = "check-syntax"

	RuleJS  = "js"
	RuleTS  = "ts"
	RuleCSS = "css"

	UseSWC = "swc"

	LoaderSWC = "builtin:swc-loader"
)
