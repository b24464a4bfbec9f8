package scripts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/codemod/internal/jsast"
	"github.com/jward/codemod/internal/runtime"
	"github.com/jward/codemod/scripts"
)

func runCodemod(t *testing.T, name, path, src string) *runtime.Result {
	t.Helper()

	f, err := jsast.Parse(context.Background(), path, []byte(src))
	require.NoError(t, err)
	t.Cleanup(f.Close)

	rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS))
	res, err := rt.RunCodemod(context.Background(), runtime.CodemodScriptPath(name), f)
	require.NoError(t, err)
	return res
}

func TestNextImageToLegacyImage(t *testing.T) {
	t.Parallel()

	res := runCodemod(t, "next/13/next-image-to-legacy-image", "page.tsx", `import Image from "next/image";
import Future from 'next/future/image';
import Link from "next/link";

const Lazy = dynamic(() => import("next/image"));
const Req = require("next/image");
jest.mock("next/future/image");

export { default as Img } from "next/image";
`)
	assert.Equal(t, `import Image from "next/legacy/image";
import Future from 'next/image';
import Link from "next/link";

const Lazy = dynamic(() => import("next/legacy/image"));
const Req = require("next/legacy/image");
jest.mock("next/image");

export { default as Img } from "next/legacy/image";
`, string(res.Output))
	assert.EqualValues(t, 6, res.Data["renamed"])
}

func TestNextImageToLegacyImage_Untouched(t *testing.T) {
	t.Parallel()

	src := `import Image from "next/legacy/image";
const x = load("next/image");
`
	res := runCodemod(t, "next/13/next-image-to-legacy-image", "page.js", src)
	assert.Zero(t, res.Edits)
	assert.Equal(t, src, string(res.Output))
	assert.NotContains(t, res.Data, "renamed")
}

func TestBuiltInNextFont(t *testing.T) {
	t.Parallel()

	res := runCodemod(t, "next/13/built-in-next-font", "layout.tsx", `import { Inter } from "@next/font/google";
import localFont from '@next/font/local';
import { something } from "@next/fontkit";
`)
	assert.Equal(t, `import { Inter } from "next/font/google";
import localFont from 'next/font/local';
import { something } from "@next/fontkit";
`, string(res.Output))
	assert.EqualValues(t, 2, res.Data["renamed"])
}
