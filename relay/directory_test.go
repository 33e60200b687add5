package relay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/mqy/minichat/proto"
)

func TestParseDirectory(t *testing.T) {
	d, err := ParseDirectory("root@x.com", "shop1@x.com,,shop2@x.com", "a=root@x.com")
	require.NoError(t, err)
	assert.Equal(t, pb.Identity{Id: "1", Email: "root@x.com", Role: pb.RoleSuperadmin}, d.Superadmin)
	assert.Equal(t, []pb.Identity{
		{Id: "2", Email: "shop1@x.com", Role: pb.RoleAdmin},
		{Id: "3", Email: "shop2@x.com", Role: pb.RoleAdmin},
	}, d.Admins)
	assert.Equal(t, map[string]string{"a": "root@x.com"}, d.Tokens)

	_, err = ParseDirectory("", "", "")
	assert.Error(t, err)
	_, err = ParseDirectory("root@x.com", "root@x.com", "")
	assert.Error(t, err)
	_, err = ParseDirectory("root@x.com", "", "a")
	assert.Error(t, err)
	_, err = ParseDirectory("root@x.com", "", "a=nobody@x.com")
	assert.Error(t, err)
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
superadmin: {id: "1", email: root@x.com, name: Root}
admins:
  - {id: "2", email: shop1@x.com, name: Shop 1}
tokens:
  secret-root: root@x.com
`), 0600))

	d, err := LoadDirectory(path)
	require.NoError(t, err)
	assert.Equal(t, pb.Identity{Id: "1", Email: "root@x.com", Name: "Root", Role: pb.RoleSuperadmin}, d.Superadmin)
	assert.Equal(t, []pb.Identity{{Id: "2", Email: "shop1@x.com", Name: "Shop 1", Role: pb.RoleAdmin}}, d.Admins)
	assert.Equal(t, "root@x.com", d.Tokens["secret-root"])

	_, err = LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
