package poppler

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoPoppler(t *testing.T) {
	t.Helper()
	for _, bin := range []string{pdfinfoBin, pdftoppmBin} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not installed, skipping", bin)
		}
	}
}

func TestPageCountCorruptDocument(t *testing.T) {
	skipIfNoPoppler(t)
	r := New()
	_, err := r.PageCount(context.Background(), []byte("not a pdf"))
	require.Error(t, err)
}

func TestRenderPageOutOfRange(t *testing.T) {
	r := New()
	_, err := r.RenderPage(context.Background(), []byte{}, 0, 150)
	require.Error(t, err)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "Syntax Error", firstLine("Syntax Error\nmore detail\n"))
	assert.Equal(t, "single", firstLine("single"))
	assert.Equal(t, "", firstLine("\n\n"))
}
