package nextrouter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLegacyBindings(t *testing.T) {
	t.Parallel()

	f := parse(t, "page.tsx", `"use client";
import { useRouter as useLegacyRouter, withRouter } from 'next/router';
import type { NextRouter } from "next/router";
import { usePathname } from "next/navigation";
import { AppRouterInstance } from "next/dist/shared/lib/app-router-context";
`)
	bindings := FindLegacyBindings(f)
	require.Len(t, bindings, 2)

	assert.Equal(t, HookName, bindings[0].ImportedName)
	assert.Equal(t, "useLegacyRouter", bindings[0].LocalAlias)
	assert.Equal(t, LegacyModule, bindings[0].ModuleSpecifier)

	assert.Equal(t, LegacyTypeName, bindings[1].ImportedName)
	assert.Equal(t, LegacyTypeName, bindings[1].LocalAlias)

	table := ReadImports(f)
	assert.True(t, table.Existing[PathnameHook])
	assert.True(t, table.HasModernType)
	assert.Equal(t, "'", table.quote)
	assert.Equal(t, ";", table.semi)
	require.NotNil(t, table.First)
	assert.Equal(t, "import_statement", table.First.Type())
}

func TestFindLegacyBindings_None(t *testing.T) {
	t.Parallel()

	f := parse(t, "page.tsx", `import Router from "next/router";
import { useRouter } from "next/navigation";
`)
	assert.Empty(t, FindLegacyBindings(f))
}
