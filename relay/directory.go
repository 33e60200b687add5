package relay

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	pb "github.com/mqy/minichat/proto"
)

// Directory is the identity table the relay serves for peer discovery.
type Directory struct {
	Superadmin pb.Identity
	Admins     []pb.Identity

	// bearer token -> email.
	Tokens map[string]string
}

type yamlIdentity struct {
	Id    string `yaml:"id"`
	Email string `yaml:"email"`
	Name  string `yaml:"name"`
}

type yamlDirectory struct {
	Superadmin yamlIdentity      `yaml:"superadmin"`
	Admins     []yamlIdentity    `yaml:"admins"`
	Tokens     map[string]string `yaml:"tokens"`
}

// LoadDirectory reads a directory file like:
//
//	superadmin: {id: "1", email: root@x.com, name: Root}
//	admins:
//	  - {id: "2", email: shop1@x.com, name: Shop 1}
//	tokens:
//	  secret-root: root@x.com
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory `%s`: %v", path, err)
	}
	var y yamlDirectory
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, fmt.Errorf("parse directory `%s`: %v", path, err)
	}

	d := &Directory{
		Superadmin: pb.Identity{Id: y.Superadmin.Id, Email: y.Superadmin.Email, Name: y.Superadmin.Name, Role: pb.RoleSuperadmin},
		Tokens:     y.Tokens,
	}
	for _, a := range y.Admins {
		d.Admins = append(d.Admins, pb.Identity{Id: a.Id, Email: a.Email, Name: a.Name, Role: pb.RoleAdmin})
	}
	return d, d.Validate()
}

// ParseDirectory builds a directory from flag values: the superadmin email, comma separated
// admin emails and comma separated `token=email` pairs. Ids are assigned in order.
func ParseDirectory(superadmin, admins, tokens string) (*Directory, error) {
	d := &Directory{
		Superadmin: pb.Identity{Id: "1", Email: strings.TrimSpace(superadmin), Role: pb.RoleSuperadmin},
		Tokens:     make(map[string]string),
	}
	for _, email := range splitList(admins) {
		d.Admins = append(d.Admins, pb.Identity{
			Id:    fmt.Sprintf("%d", len(d.Admins)+2),
			Email: email,
			Role:  pb.RoleAdmin,
		})
	}
	for _, pair := range splitList(tokens) {
		i := strings.IndexByte(pair, '=')
		if i <= 0 || i == len(pair)-1 {
			return nil, fmt.Errorf("invalid token pair `%s`, expect token=email", pair)
		}
		d.Tokens[pair[:i]] = pair[i+1:]
	}
	return d, d.Validate()
}

func (d *Directory) Validate() error {
	if d.Superadmin.Email == "" {
		return fmt.Errorf("directory: superadmin email is required")
	}
	seen := map[string]bool{d.Superadmin.Email: true}
	for _, a := range d.Admins {
		if a.Email == "" {
			return fmt.Errorf("directory: admin with empty email")
		}
		if seen[a.Email] {
			return fmt.Errorf("directory: duplicated email %s", a.Email)
		}
		seen[a.Email] = true
	}
	for token, email := range d.Tokens {
		if !seen[email] {
			return fmt.Errorf("directory: token %q maps to unknown email %s", token, email)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
