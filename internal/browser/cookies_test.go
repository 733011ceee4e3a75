package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCookies_Array(t *testing.T) {
	data := []byte(`[
		{"name": "web_session", "value": "abc", "domain": ".xiaohongshu.com", "path": "/", "expires": 1900000000, "httpOnly": true, "secure": true, "sameSite": "Lax"},
		{"name": "", "value": "skip"},
		{"name": "a1", "value": "x", "domain": ".xiaohongshu.com"}
	]`)

	cookies, err := ParseCookies(data)
	require.NoError(t, err)
	require.Len(t, cookies, 2)

	assert.Equal(t, "web_session", cookies[0].Name)
	assert.Equal(t, proto.TimeSinceEpoch(1900000000), cookies[0].Expires)
	assert.True(t, cookies[0].HTTPOnly)
	assert.Equal(t, proto.NetworkCookieSameSiteLax, cookies[0].SameSite)

	assert.Equal(t, "/", cookies[1].Path, "missing path defaults to root")
	assert.Equal(t, proto.TimeSinceEpoch(0), cookies[1].Expires)
}

func TestParseCookies_StorageState(t *testing.T) {
	data := []byte(`{"cookies": [{"name": "web_session", "value": "abc", "domain": ".xiaohongshu.com"}], "origins": []}`)

	cookies, err := ParseCookies(data)
	require.NoError(t, err)
	require.Len(t, cookies, 1)
	assert.Equal(t, "abc", cookies[0].Value)
}

func TestParseCookies_Invalid(t *testing.T) {
	_, err := ParseCookies([]byte(`not json`))
	assert.Error(t, err)
}

func TestLoadCookies_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"a","value":"b"}]`), 0o600))

	cookies, err := LoadCookies(path)
	require.NoError(t, err)
	assert.Len(t, cookies, 1)

	_, err = LoadCookies(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestToHTTPCookies(t *testing.T) {
	in := []*proto.NetworkCookie{
		{Name: "web_session", Value: "abc", Domain: ".xiaohongshu.com", Path: "/", Expires: 1900000000, Secure: true},
	}
	out := ToHTTPCookies(in)
	require.Len(t, out, 1)
	assert.Equal(t, "web_session", out[0].Name)
	assert.Equal(t, int64(1900000000), out[0].Expires.Unix())
	assert.True(t, out[0].Secure)
}
