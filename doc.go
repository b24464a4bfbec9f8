// Package codemod runs source-to-source codemods over JavaScript and
// TypeScript trees built on tree-sitter.
//
// # Catalog
//
// Codemods are registered by name. The catalog ships with:
//
//   - next/13/replace-next-router: migrates the next/router useRouter hook
//     and NextRouter type to next/navigation (useRouter, useSearchParams,
//     usePathname) by analysing every use of the router in a file.
//   - next/13/next-image-to-legacy-image: a Risor script that renames
//     next/image imports to next/legacy/image.
//   - next/13/built-in-next-font: a Risor script that moves @next/font
//     imports to next/font.
//
// # Pipeline
//
// A run has three phases:
//
//  1. Prepare (serial): discover files with git ls-files (or a directory
//     walk), apply include/exclude globs, hash contents and skip files the
//     ledger already records as processed when running incrementally.
//  2. Transform (parallel): parse each file and run the codemod, which
//     returns Commands rather than writing anything itself.
//  3. Commit (serial): apply the commands (or render diffs on a dry run)
//     and record per-file results in the SQLite ledger.
//
// # Usage
//
//	e, err := codemod.New(".codemod/runs.db", "", codemod.WithScriptsFS(scripts.FS))
//	if err != nil { ... }
//	defer e.Close()
//
//	summary, err := e.Run(ctx, "next/13/replace-next-router", "path/to/app")
package codemod
