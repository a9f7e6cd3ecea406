// Package core drives the build pipeline.
//
// A Builder owns the plugin registry, the hook buses and the bundler runner.
// InitConfigs runs the configuration half of the pipeline:
//
//	user config -> modifyRsbuildConfig -> per environment: defaults + user
//	config + environment override -> modifyEnvironmentConfig -> normalized
//	config -> fresh chain -> modifyBundlerChain -> frozen bundler config ->
//	modifyBundlerConfig
//
// Build continues with compiler creation, the bundler run and the build
// lifecycle hooks. Every hook runs its handlers one at a time in plugin
// resolution order.
package core
