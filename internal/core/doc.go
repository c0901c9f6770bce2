// Package core is the configuration-driven table engine.
//
// It is independent of any transport layer and can be used by the HTTP
// server, the operator CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Table types: a closed set registered at init time via [Register]. Each
//     [TableDefinition] carries the built-in default configuration for its
//     type.
//   - Engine: the entry point for all operations. It loads configuration
//     documents from a [ConfigStore], merges them over the type defaults,
//     validates, compiles against observed data and caches the results in a
//     [Cache].
//   - ErrorHandler: the fallback chain. Public engine methods never return a
//     raw failure; they repair, substitute defaults, or degrade to a minimal
//     table.
//
// # Table Registry
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "basic_info", Group: "facility", Label: "基本情報"},
//	    Defaults: basicInfoDefaults,
//	})
//
// # Configuration Pipeline
//
//  1. [Engine.GetConfig] rejects unregistered table types
//  2. The store document is merged over the defaults with [MergeWithDefaults]
//  3. The merged document is checked with [Validate]; failures are repaired
//  4. The validated config is cached for Cache.ConfigTTL
//  5. [Engine.CompileWithData] adds inferred columns, filters conditional
//     columns and computes widths, caching by data shape
//
// # Error Handling
//
// Errors are classified by [ErrorKind] and mapped to user-facing messages with
// [MapError]:
//
//   - CFG001-CFG099: configuration loading and validation
//   - COL001-COL099: column mutations
//   - RND001-RND099: rendering
//   - STO001-STO099: configuration store access
package core
