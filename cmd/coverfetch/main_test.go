package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
	"go.senan.xyz/coverfetch/cmd/internal/testing/testcmds"
)

func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"coverfetch": func() int { testcmds.RegisterTransport(); main(); return 0 },
		"touch":      func() int { testcmds.Touch(); return 0 },
		"mime":       func() int { testcmds.MIME(); return 0 },
		"image-info": func() int { testcmds.ImageInfo(); return 0 },
		"empty-flac": func() int { testcmds.EmptyFLAC(); return 0 },
		"flac-cover": func() int { testcmds.FLACCover(); return 0 },
	}))
}

func TestScripts(t *testing.T) {
	t.Parallel()

	testscript.Run(t, testscript.Params{
		Dir:                 "testdata/scripts",
		RequireExplicitExec: true,
		Setup: func(env *testscript.Env) error {
			env.Setenv("COVERFETCH_CACHE_DIR", env.WorkDir+"/cache")
			env.Setenv("COVERFETCH_PREFS_PATH", env.WorkDir+"/prefs.yaml")
			return nil
		},
	})
}
