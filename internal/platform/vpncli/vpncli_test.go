package vpncli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClientList(t *testing.T) {
	out := `OpenVPN client names:
alice
bob

WireGuard/AmneziaWG client names:
alice
charlie-2
`
	assert.Equal(t, []string{"alice", "bob", "alice", "charlie-2"}, ParseClientList(out))
}

func TestParseClientListEmpty(t *testing.T) {
	assert.Nil(t, ParseClientList(""))
	assert.Nil(t, ParseClientList("OpenVPN client names:\n\n"))
}

func TestParseClientListMenuBanner(t *testing.T) {
	// Some script versions echo the menu line before the names.
	out := "OpenVPN - List clients\nalice\n"
	assert.Equal(t, []string{"alice"}, ParseClientList(out))
}
