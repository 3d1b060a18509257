package kilntest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// UpdateSnapshotsEnv rewrites snapshot files instead of comparing against
// them when set to a non-empty value.
const UpdateSnapshotsEnv = "KILN_UPDATE_SNAPSHOTS"

// AssertSnapshot compares actual with the content of the snapshot file at
// path, creating or replacing the file in update mode.
func AssertSnapshot(t testing.TB, path, actual string) {
	t.Helper()

	if os.Getenv(UpdateSnapshotsEnv) != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(actual), 0o644))
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("snapshot %s does not exist; run with %s=1 to create it", path, UpdateSnapshotsEnv)
	}
	require.NoError(t, err)

	if string(expected) != actual {
		t.Fatalf("snapshot %s does not match:\n%s", path, lineDiff(string(expected), actual))
	}
}

// TreeListing returns the regular files below dir, one slash separated
// path per line.
func TreeListing(t testing.TB, dir string) string {
	t.Helper()
	files := Files(t, dir)
	if len(files) == 0 {
		return ""
	}
	return strings.Join(files, "\n") + "\n"
}

func lineDiff(expected, actual string) string {
	want := strings.Split(expected, "\n")
	got := strings.Split(actual, "\n")

	var b strings.Builder
	for i := range max(len(want), len(got)) {
		var w, g string
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			g = got[i]
		}
		if w == g {
			continue
		}
		fmt.Fprintf(&b, "line %d:\n", i+1)
		if i < len(want) {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
		if i < len(got) {
			fmt.Fprintf(&b, "  + %s\n", g)
		}
	}
	return b.String()
}
