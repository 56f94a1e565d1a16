package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_ToHTML(t *testing.T) {
	r := NewRenderer()

	out, err := r.ToHTML("**Giày chạy bộ** size 42\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Giày chạy bộ</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestRenderer_PlainText(t *testing.T) {
	r := NewRenderer()

	assert.Equal(t, "Tài khoản đã bị khoá", r.PlainText(`<b onclick="x()">Tài khoản đã bị khoá</b>`))
	assert.Equal(t, "", r.PlainText("<img src=x onerror=alert(1)>"))
}

func TestRenderer_PlainTextUnescapes(t *testing.T) {
	r := NewRenderer()

	assert.Equal(t, "Tom & Jerry's", r.PlainText("<i>Tom &amp; Jerry's</i>"))
}
