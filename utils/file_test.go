package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWithTimestamp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")

	name, err := SaveWithTimestamp(strings.NewReader("%PDF-1.4"), dir, "../../etc/handbook.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "handbook_"))
	assert.Equal(t, ".pdf", filepath.Ext(name))

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}
